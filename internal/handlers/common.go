// common.go
//
// Student project showcase backend
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of kiosek.
// kiosek is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// kiosek is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with kiosek.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/kiosek/internal/services"
	"github.com/localnerve/kiosek/internal/types"
	"github.com/localnerve/kiosek/internal/utils"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ReviewRequest is the body of the review endpoints
type ReviewRequest struct {
	Approved *types.FlexBool `json:"approved" validate:"required"`
}

// ProjectDetailResponse is a project as the edit and detail screens expect it.
// Tags and Media are JSON encoded string arrays. Status is only filled on the
// moderation screen.
type ProjectDetailResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
	Thumbnail   string `json:"thumbnail"`
	Media       string `json:"media"`
	Status      string `json:"status,omitempty"`
}

// PreviewResponse is a project card of the public list
type PreviewResponse struct {
	ID           string    `json:"ID"`
	Name         string    `json:"Name"`
	ThumbnailURL string    `json:"ThumbnailUrl"`
	Tags         []string  `json:"Tags"`
	Created      time.Time `json:"Created"`
}

// OwnPreviewResponse is a project card of the author's own list
type OwnPreviewResponse struct {
	PreviewResponse
	Status string `json:"status"`
}

// ModerationSummaryResponse is a project card of the moderation screen
type ModerationSummaryResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail"`
	Status    string `json:"status"`
}

// parseBody decodes and validates a JSON body
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return types.BadRequest("Malformed request body", "validation.body")
	}
	if err := validate.Struct(dst); err != nil {
		return types.BadRequest(err.Error(), "validation.body")
	}
	return nil
}

// requireID reads the id query parameter
func requireID(c *fiber.Ctx) (string, error) {
	id := c.Query("id")
	if id == "" {
		return "", types.BadRequest("Missing project id", "validation.id")
	}
	return id, nil
}

// serviceError maps a service failure to the error envelope
func serviceError(err error, op string) error {
	var custom *types.CustomError
	switch {
	case errors.As(err, &custom):
		return custom
	case errors.Is(err, services.ErrValidation):
		return types.BadRequest(err.Error(), "validation")
	case errors.Is(err, services.ErrProjectNotFound):
		return types.BadRequest("Unknown project id", "validation.id")
	case errors.Is(err, services.ErrTagNotFound):
		return types.BadRequest("Unknown tag id", "validation.id")
	case errors.Is(err, services.ErrInvalidStatus), errors.Is(err, services.ErrInvalidTransition):
		return types.BadRequest(err.Error(), "validation.status")
	case errors.Is(err, services.ErrForbidden):
		return types.Unauthorized("auth.admin")
	}
	return types.Internal(op)
}

func toDetailResponse(detail *services.ProjectDetail) (*ProjectDetailResponse, error) {
	tags, err := json.Marshal(nonNil(detail.Tags))
	if err != nil {
		return nil, err
	}
	media, err := json.Marshal(nonNil(detail.Media))
	if err != nil {
		return nil, err
	}

	return &ProjectDetailResponse{
		ID:          detail.ID,
		Name:        utils.SanitizeHTML(detail.Name),
		Description: detail.Description,
		Tags:        string(tags),
		Thumbnail:   detail.Thumbnail,
		Media:       string(media),
	}, nil
}

func toPreviewResponse(p services.ProjectPreview) PreviewResponse {
	return PreviewResponse{
		ID:           p.ID,
		Name:         p.Name,
		ThumbnailURL: p.Thumbnail,
		Tags:         nonNil(p.Tags),
		Created:      p.Created,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
