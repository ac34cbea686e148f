package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/kiosek/internal/middleware"
	"github.com/localnerve/kiosek/internal/services"
	"github.com/localnerve/kiosek/internal/types"
	"github.com/localnerve/kiosek/internal/utils"
)

// CheckHandler handles the project moderation routes
type CheckHandler struct {
	Projects   *services.ProjectStore
	Moderation *services.ModerationWorkflow
}

// GetProjects handles GET /api/check/projects
// @Summary Moderation queue
// @Description Without id: ids of all projects, waiting first. With id: the status card, or the full detail with its status when examine is true.
// @Tags Moderation
// @Produce json
// @Security BearerAuth
// @Param id query string false "Project ID"
// @Param examine query bool false "Return the full project detail"
// @Success 200 {object} ModerationSummaryResponse
// @Success 200 {object} ProjectDetailResponse
// @Success 200 {array} string
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /check/projects [get]
func (h *CheckHandler) GetProjects(c *fiber.Ctx) error {
	ctx := c.UserContext()

	id := c.Query("id")
	if id == "" {
		ids, err := h.Projects.GetModerationQueue(ctx)
		if err != nil {
			return types.Internal("check.queue")
		}
		return c.JSON(utils.SanitizeAll(ids))
	}

	examine, _ := strconv.ParseBool(c.Query("examine"))
	if examine {
		detail, err := h.Projects.GetProject(ctx, id)
		if err != nil {
			return serviceError(err, "check.detail")
		}
		form, err := toDetailResponse(detail)
		if err != nil {
			return types.Internal("check.detail")
		}
		form.Status = detail.Status.CheckupLabel()
		return c.JSON(form)
	}

	summary, err := h.Projects.GetModerationSummary(ctx, id)
	if err != nil {
		return serviceError(err, "check.summary")
	}
	return c.JSON(ModerationSummaryResponse{
		ID:        summary.ID,
		Name:      utils.SanitizeHTML(summary.Name),
		Thumbnail: summary.Thumbnail,
		Status:    summary.Status.CheckupLabel(),
	})
}

// Review handles POST /api/check/projects/review?id=
// @Summary Review a project
// @Description Approve or deny a project
// @Tags Moderation
// @Accept json
// @Produce plain
// @Security BearerAuth
// @Param id query string true "Project ID"
// @Param body body ReviewRequest true "Decision"
// @Success 200 {string} string "OK"
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /check/projects/review [post]
func (h *CheckHandler) Review(c *fiber.Ctx) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}

	var body ReviewRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}

	token := middleware.TokenFrom(c)
	if err := h.Moderation.ReviewProject(c.UserContext(), token, id, body.Approved.Bool()); err != nil {
		return serviceError(err, "check.review")
	}
	return c.SendString("OK")
}
