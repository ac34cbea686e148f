// data.go
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

package helpers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
)

// FormFile is one file part of a multipart form
type FormFile struct {
	Field    string
	Filename string
	Data     []byte
}

// ProjectForm is the multipart body of the submit and update routes.
// Tags and RemovedMedia are sent JSON encoded.
type ProjectForm struct {
	Name             string
	Description      string
	Tags             []string
	ChangedThumbnail bool
	RemovedMedia     []string
	Files            []FormFile
}

// Encode writes the form and returns the body and its content type
func (f ProjectForm) Encode(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	tags, err := json.Marshal(f.Tags)
	if err != nil {
		t.Fatalf("Failed to marshal tags: %v", err)
	}
	removed, err := json.Marshal(f.RemovedMedia)
	if err != nil {
		t.Fatalf("Failed to marshal removed media: %v", err)
	}

	fields := map[string]string{
		"name":             f.Name,
		"description":      f.Description,
		"tags":             string(tags),
		"changedThumbnail": strconv.FormatBool(f.ChangedThumbnail),
		"removedMedia":     string(removed),
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("Failed to write field %s: %v", k, err)
		}
	}

	for _, file := range f.Files {
		part, err := w.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			t.Fatalf("Failed to create file part: %v", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			t.Fatalf("Failed to write file part: %v", err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	return body, w.FormDataContentType()
}

// PNG returns an encoded w x h image
func PNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// PostProjectForm sends form to target and returns the response
func PostProjectForm(t *testing.T, app *fiber.App, target, token string, form ProjectForm) *http.Response {
	t.Helper()

	body, contentType := form.Encode(t)
	req := NewRequest(http.MethodPost, target, body, token)
	req.Header.Set("Content-Type", contentType)
	return Do(t, app, req)
}

// SubmitProject submits form as the token holder and fails the test on any
// status but 200
func SubmitProject(t *testing.T, app *fiber.App, token string, form ProjectForm) {
	t.Helper()

	resp := PostProjectForm(t, app, "/api/project", token, form)
	AssertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

// MyProjects lists the token holder's projects
func MyProjects(t *testing.T, app *fiber.App, token string) []map[string]any {
	t.Helper()

	resp := Do(t, app, NewRequest(http.MethodGet, "/api/preview/my-projects", nil, token))
	AssertStatus(t, resp, http.StatusOK)

	var out []map[string]any
	ParseJSON(t, resp, &out)
	return out
}
