// storage.go
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

// Package media stores uploaded files under the uploads directory and
// recompresses thumbnails.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// KindThumbnail is the directory thumbnails are written to
	KindThumbnail = "thumbnails"
	// KindMedia is the directory other project files are written to
	KindMedia = "media"

	urlPrefix = "uploads/"
)

// ErrNotImage is returned when a thumbnail upload is not an image
var ErrNotImage = errors.New("thumbnail must be an image")

// Options configures thumbnail compression
type Options struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// Storage writes uploads below dir
type Storage struct {
	dir  string
	opts Options
	log  *zap.Logger
}

// NewStorage creates a Storage rooted at dir
func NewStorage(dir string, opts Options, log *zap.Logger) *Storage {
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = 800
	}
	if opts.MaxHeight <= 0 {
		opts.MaxHeight = 600
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 80
	}
	return &Storage{dir: dir, opts: opts, log: log.Named("storage")}
}

// Dir is the uploads root on disk
func (s *Storage) Dir() string {
	return s.dir
}

// Save writes an uploaded file under kind with a random name and returns the
// stored name, which is also its URL path below /uploads.
func (s *Storage) Save(fh *multipart.FileHeader, kind string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	return s.write(src, fh.Filename, kind)
}

// SaveThumbnail saves an image upload and recompresses it.
// A compression failure keeps the original file.
func (s *Storage) SaveThumbnail(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("failed to detect thumbnail type: %w", err)
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%w: got %s", ErrNotImage, mtype.String())
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	name, err := s.write(src, fh.Filename, KindThumbnail)
	if err != nil {
		return "", err
	}

	path, _ := s.Path(name)
	compressed, err := Compress(path, s.opts)
	if err != nil {
		s.log.Warn("thumbnail left uncompressed", zap.String("name", name), zap.Error(err))
		return name, nil
	}
	return urlPrefix + KindThumbnail + "/" + filepath.Base(compressed), nil
}

func (s *Storage) write(src io.Reader, original, kind string) (string, error) {
	dir := filepath.Join(s.dir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	file := uuid.NewString() + strings.ToLower(filepath.Ext(original))
	dst, err := os.Create(filepath.Join(dir, file))
	if err != nil {
		return "", fmt.Errorf("failed to create upload: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", err
	}

	return urlPrefix + kind + "/" + file, nil
}

// Path maps a stored name to its file on disk
func (s *Storage) Path(name string) (string, error) {
	rel, ok := strings.CutPrefix(filepath.ToSlash(name), urlPrefix)
	if !ok || rel == "" || strings.Contains(rel, "..") {
		return "", fmt.Errorf("invalid upload name %q", name)
	}
	return filepath.Join(s.dir, filepath.FromSlash(rel)), nil
}

// Discard removes files saved for a request that did not commit
func (s *Storage) Discard(names ...string) {
	for _, name := range names {
		path, err := s.Path(name)
		if err != nil {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("failed to discard upload", zap.String("name", name), zap.Error(err))
		}
	}
}
