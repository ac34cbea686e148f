package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/kiosek/internal/models"
	"github.com/localnerve/kiosek/internal/services"
	"github.com/localnerve/kiosek/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", fmt.Errorf("%w: name is required", services.ErrValidation), fiber.StatusBadRequest},
		{"unknown project", services.ErrProjectNotFound, fiber.StatusBadRequest},
		{"unknown tag", services.ErrTagNotFound, fiber.StatusBadRequest},
		{"bad transition", services.ErrInvalidTransition, fiber.StatusBadRequest},
		{"bad status", services.ErrInvalidStatus, fiber.StatusBadRequest},
		{"forbidden", services.ErrForbidden, fiber.StatusUnauthorized},
		{"custom passes through", types.BadRequest("x", "y"), fiber.StatusBadRequest},
		{"anything else", errors.New("connection reset"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var custom *types.CustomError
			require.ErrorAs(t, serviceError(tt.err, "op"), &custom)
			assert.Equal(t, tt.code, custom.Code)
		})
	}

	var custom *types.CustomError
	require.ErrorAs(t, serviceError(errors.New("dsn password=hunter2"), "op"), &custom)
	assert.NotContains(t, custom.Message, "hunter2", "internal errors are not echoed")
}

func TestToDetailResponse(t *testing.T) {
	form, err := toDetailResponse(&services.ProjectDetail{
		ID:          "p1",
		Name:        "<b>Robot</b>",
		Description: "<p>kept as is</p>",
		Tags:        []string{"go", "robots"},
		Thumbnail:   "uploads/thumbnails/a.jpg",
		Media:       nil,
		Status:      models.StatusApproved,
	})
	require.NoError(t, err)

	assert.Equal(t, "p1", form.ID)
	assert.Equal(t, "&lt;b&gt;Robot&lt;&#x2F;b&gt;", form.Name)
	assert.Equal(t, "<p>kept as is</p>", form.Description)
	assert.Equal(t, "uploads/thumbnails/a.jpg", form.Thumbnail)

	var tags, media []string
	require.NoError(t, json.Unmarshal([]byte(form.Tags), &tags))
	require.NoError(t, json.Unmarshal([]byte(form.Media), &media))
	assert.Equal(t, []string{"go", "robots"}, tags)
	assert.Equal(t, "[]", form.Media)
	assert.Empty(t, media)
}

func TestPreviewResponseShape(t *testing.T) {
	created := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	card := toPreviewResponse(services.ProjectPreview{
		ID:        "p1",
		Name:      "Robot",
		Thumbnail: "uploads/thumbnails/a.jpg",
		Created:   created,
	})

	data, err := json.Marshal(OwnPreviewResponse{PreviewResponse: card, Status: "Approved."})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"ID", "Name", "ThumbnailUrl", "Tags", "Created", "status"} {
		assert.Contains(t, raw, key)
	}
	assert.Equal(t, []any{}, raw["Tags"])
}

func TestIsAddedMediaField(t *testing.T) {
	assert.True(t, isAddedMediaField("addedMedia"))
	assert.True(t, isAddedMediaField("addedMedia[0]"))
	assert.True(t, isAddedMediaField("media_3"))
	assert.False(t, isAddedMediaField("thumbnail"))
	assert.False(t, isAddedMediaField("media"))
}
