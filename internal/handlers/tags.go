package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/kiosek/internal/middleware"
	"github.com/localnerve/kiosek/internal/services"
	"github.com/localnerve/kiosek/internal/types"
)

// TagHandler handles tag listing and tag review routes
type TagHandler struct {
	Tags       *services.TagCatalog
	Moderation *services.ModerationWorkflow
}

// GetApproved handles GET /api/tags
// @Summary List approved tags
// @Description Names of the tags an administrator has approved, for the submit form
// @Tags Tags
// @Produce json
// @Security BearerAuth
// @Success 200 {array} string
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /tags [get]
func (h *TagHandler) GetApproved(c *fiber.Ctx) error {
	names, err := h.Tags.ListApprovedNames(c.UserContext())
	if err != nil {
		return types.Internal("tags.list")
	}
	return c.JSON(names)
}

// GetAll handles GET /api/check/tags
// @Summary List all tags
// @Description Every tag with its approval flag, for the moderation screen
// @Tags Moderation
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Tag
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /check/tags [get]
func (h *TagHandler) GetAll(c *fiber.Ctx) error {
	tags, err := h.Tags.ListAll(c.UserContext())
	if err != nil {
		return types.Internal("tags.list")
	}
	return c.JSON(tags)
}

// Review handles POST /api/check/tags/review?id=
// @Summary Review a tag
// @Description Approve a tag, or reject it which deletes the tag and unlinks it from every project
// @Tags Moderation
// @Accept json
// @Produce plain
// @Security BearerAuth
// @Param id query string true "Tag ID"
// @Param body body ReviewRequest true "Decision"
// @Success 200 {string} string "OK"
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /check/tags/review [post]
func (h *TagHandler) Review(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return types.BadRequest("Missing tag id", "validation.id")
	}

	var body ReviewRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}

	token := middleware.TokenFrom(c)
	if err := h.Moderation.ReviewTag(c.UserContext(), token, id, body.Approved.Bool()); err != nil {
		return serviceError(err, "tags.review")
	}
	return c.SendString("OK")
}
