package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/kiosek/internal/middleware"
	"github.com/localnerve/kiosek/internal/services"
	"github.com/localnerve/kiosek/internal/types"
	"github.com/localnerve/kiosek/internal/utils"
)

// PreviewHandler handles the project list routes
type PreviewHandler struct {
	Projects *services.ProjectStore
}

// AllProjects handles GET /api/preview/projects
// @Summary List approved projects
// @Description Project cards of every approved project, newest first
// @Tags Preview
// @Produce json
// @Success 200 {array} PreviewResponse
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /preview/projects [get]
func (h *PreviewHandler) AllProjects(c *fiber.Ctx) error {
	previews, err := h.Projects.GetPreviewProjects(c.UserContext())
	if err != nil {
		return types.Internal("preview.list")
	}

	out := make([]PreviewResponse, 0, len(previews))
	for _, p := range previews {
		out = append(out, toPreviewResponse(p))
	}
	return c.JSON(out)
}

// MyProjects handles GET /api/preview/my-projects
// @Summary List the caller's projects
// @Description Project cards of every project the caller submitted, with its review status
// @Tags Preview
// @Produce json
// @Security BearerAuth
// @Success 200 {array} OwnPreviewResponse
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /preview/my-projects [get]
func (h *PreviewHandler) MyProjects(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return types.Unauthorized("auth.invalid")
	}

	previews, err := h.Projects.GetPreviewProjectsByOwner(c.UserContext(), identity.Username)
	if err != nil {
		return types.Internal("preview.mine")
	}

	out := make([]OwnPreviewResponse, 0, len(previews))
	for _, p := range previews {
		card := toPreviewResponse(p)
		card.ID = utils.SanitizeHTML(card.ID)
		card.Name = utils.SanitizeHTML(card.Name)
		card.ThumbnailURL = utils.SanitizeHTML(card.ThumbnailURL)
		card.Tags = utils.SanitizeAll(card.Tags)
		out = append(out, OwnPreviewResponse{PreviewResponse: card, Status: p.Status.OwnerLabel()})
	}
	return c.JSON(out)
}
