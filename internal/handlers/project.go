// project.go
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
	"errors"
	"maps"
	"mime/multipart"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/kiosek/internal/media"
	"github.com/localnerve/kiosek/internal/middleware"
	"github.com/localnerve/kiosek/internal/services"
	"github.com/localnerve/kiosek/internal/types"
	"github.com/localnerve/kiosek/internal/utils"
	"go.uber.org/zap"
)

const thumbnailField = "thumbnail"

// ProjectHandler handles project submission, editing and detail routes
type ProjectHandler struct {
	Projects *services.ProjectStore
	Storage  *media.Storage
	Log      *zap.Logger
}

// Submit handles POST /api/project
// @Summary Submit a project
// @Description Multipart form with name, description, tags (JSON array), a thumbnail image and any number of media files. The project starts as waiting for review.
// @Tags Projects
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param name formData string true "Project name"
// @Param description formData string true "Project description, HTML allowed"
// @Param tags formData string false "JSON array of tag names"
// @Param thumbnail formData file true "Thumbnail image"
// @Success 200 {object} utils.MessageResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /project [post]
func (h *ProjectHandler) Submit(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return types.Unauthorized("auth.invalid")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return types.BadRequest("Expected a multipart form", "validation.form")
	}

	name := formValue(form, "name")
	description := formValue(form, "description")
	if strings.TrimSpace(name) == "" || strings.TrimSpace(description) == "" {
		return types.BadRequest("Name and description are required", "validation.form")
	}
	tags, err := types.ParseFlexList[string](formValue(form, "tags"))
	if err != nil {
		return types.BadRequest("Tags must be a JSON array", "validation.tags")
	}
	thumbs := form.File[thumbnailField]
	if len(thumbs) == 0 {
		return types.BadRequest("Missing thumbnail", "validation.thumbnail")
	}

	var saved []string
	thumbnail, err := h.saveThumbnail(thumbs[0])
	if err != nil {
		return err
	}
	saved = append(saved, thumbnail)

	mediaNames, err := h.saveMedia(form, func(field string) bool { return field != thumbnailField })
	saved = append(saved, mediaNames...)
	if err != nil {
		h.Storage.Discard(saved...)
		return err
	}

	_, err = h.Projects.Submit(c.UserContext(), services.Submission{
		Name:        name,
		Description: description,
		Tags:        tags.Slice(),
		Thumbnail:   thumbnail,
		Media:       mediaNames,
	}, identity.Username)
	if err != nil {
		h.Storage.Discard(saved...)
		h.Log.Error("project submit failed", zap.String("author", identity.Username), zap.Error(err))
		return serviceError(err, "project.submit")
	}

	return utils.MessageResponse(c, "Project submitted successfully")
}

// Update handles POST /api/project/update?id=
// @Summary Update a project
// @Description Multipart form with name, description and the complete tag list. changedThumbnail with a thumbnail file replaces the cover, removedMedia (JSON array) deletes media, addedMedia* or media_* files are appended. The project goes back to waiting for review.
// @Tags Projects
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id query string true "Project ID"
// @Param name formData string true "Project name"
// @Param description formData string true "Project description, HTML allowed"
// @Param tags formData string false "JSON array of tag names"
// @Param changedThumbnail formData bool false "Whether thumbnail holds a new cover"
// @Param thumbnail formData file false "Thumbnail image"
// @Param removedMedia formData string false "JSON array of media names to remove"
// @Success 200 {object} utils.MessageResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /project/update [post]
func (h *ProjectHandler) Update(c *fiber.Ctx) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return types.BadRequest("Expected a multipart form", "validation.form")
	}

	name := formValue(form, "name")
	description := formValue(form, "description")
	if strings.TrimSpace(name) == "" || strings.TrimSpace(description) == "" {
		return types.BadRequest("Name and description are required", "validation.form")
	}
	tags, err := types.ParseFlexList[string](formValue(form, "tags"))
	if err != nil {
		return types.BadRequest("Tags must be a JSON array", "validation.tags")
	}
	removed, err := types.ParseFlexList[string](formValue(form, "removedMedia"))
	if err != nil {
		return types.BadRequest("removedMedia must be a JSON array", "validation.media")
	}
	var changed types.FlexBool
	if err := changed.UnmarshalText([]byte(formValue(form, "changedThumbnail"))); err != nil {
		return types.BadRequest("changedThumbnail must be a boolean", "validation.thumbnail")
	}

	var saved []string
	thumbnail := ""
	if changed.Bool() {
		thumbs := form.File[thumbnailField]
		if len(thumbs) == 0 {
			return types.BadRequest("Missing thumbnail", "validation.thumbnail")
		}
		if thumbnail, err = h.saveThumbnail(thumbs[0]); err != nil {
			return err
		}
		saved = append(saved, thumbnail)
	}

	added, err := h.saveMedia(form, isAddedMediaField)
	saved = append(saved, added...)
	if err != nil {
		h.Storage.Discard(saved...)
		return err
	}

	err = h.Projects.Update(c.UserContext(), services.Edit{
		ID:           id,
		Name:         name,
		Description:  description,
		Tags:         tags.Slice(),
		RemovedMedia: removed.Slice(),
		AddedMedia:   added,
		Thumbnail:    thumbnail,
	})
	if err != nil {
		h.Storage.Discard(saved...)
		h.Log.Error("project update failed", zap.String("id", id), zap.Error(err))
		return serviceError(err, "project.update")
	}

	return utils.MessageResponse(c, "Project updated successfully")
}

// Get handles GET /api/project?id=
// @Summary Get an approved project
// @Description Public detail of a project. Tags and media are JSON encoded arrays.
// @Tags Projects
// @Produce json
// @Param id query string true "Project ID"
// @Success 200 {object} ProjectDetailResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /project [get]
func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}

	active, err := h.Projects.IsActive(c.UserContext(), id)
	if err != nil {
		return types.Internal("project.get")
	}
	if !active {
		return types.BadRequest("Project is not available", "validation.id")
	}

	return h.sendDetail(c, id)
}

// GetForEdit handles GET /api/project/edit?id=
// @Summary Get a project for editing
// @Description Detail of one of the caller's projects in any status
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param id query string true "Project ID"
// @Success 200 {object} ProjectDetailResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /project/edit [get]
func (h *ProjectHandler) GetForEdit(c *fiber.Ctx) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	return h.sendDetail(c, id)
}

func (h *ProjectHandler) sendDetail(c *fiber.Ctx, id string) error {
	detail, err := h.Projects.GetProject(c.UserContext(), id)
	if err != nil {
		return serviceError(err, "project.get")
	}
	form, err := toDetailResponse(detail)
	if err != nil {
		return types.Internal("project.get")
	}
	return c.JSON(form)
}

func (h *ProjectHandler) saveThumbnail(fh *multipart.FileHeader) (string, error) {
	name, err := h.Storage.SaveThumbnail(fh)
	if errors.Is(err, media.ErrNotImage) {
		return "", types.BadRequest("Thumbnail must be an image", "validation.thumbnail")
	}
	if err != nil {
		h.Log.Error("failed to store thumbnail", zap.Error(err))
		return "", types.Internal("project.upload")
	}
	return name, nil
}

// saveMedia stores the files of every field accepted by include, in field name
// order. Names saved before a failure are returned alongside the error.
func (h *ProjectHandler) saveMedia(form *multipart.Form, include func(field string) bool) ([]string, error) {
	var names []string
	for _, field := range slices.Sorted(maps.Keys(form.File)) {
		if !include(field) {
			continue
		}
		for _, fh := range form.File[field] {
			name, err := h.Storage.Save(fh, media.KindMedia)
			if err != nil {
				h.Log.Error("failed to store media", zap.String("field", field), zap.Error(err))
				return names, types.Internal("project.upload")
			}
			names = append(names, name)
		}
	}
	return names, nil
}

func isAddedMediaField(field string) bool {
	return strings.HasPrefix(field, "addedMedia") || strings.HasPrefix(field, "media_")
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}
