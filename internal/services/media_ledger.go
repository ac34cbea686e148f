package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/localnerve/kiosek/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UploadsPrefix is the URL prefix media names are stored and served under
const UploadsPrefix = "uploads/"

// NormalizeMediaPath converts a stored or client supplied media name to the
// forward slash form kept in the database.
func NormalizeMediaPath(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimPrefix(name, "/")
}

// MediaLedger tracks thumbnail and media rows and owns deletion of their files
type MediaLedger struct {
	uploadsDir string
	log        *zap.Logger
}

// NewMediaLedger creates a MediaLedger rooted at uploadsDir
func NewMediaLedger(uploadsDir string, log *zap.Logger) *MediaLedger {
	return &MediaLedger{uploadsDir: uploadsDir, log: log.Named("media")}
}

// FilePath resolves a stored media name to its location on disk.
// Names that do not live under the uploads directory are rejected.
func (l *MediaLedger) FilePath(name string) (string, error) {
	name = path.Clean(NormalizeMediaPath(name))
	if !strings.HasPrefix(name, UploadsPrefix) {
		return "", fmt.Errorf("%w: media name %q is outside uploads", ErrValidation, name)
	}
	rel := strings.TrimPrefix(name, UploadsPrefix)
	if rel == "" || rel == "." || strings.HasPrefix(rel, "../") || rel == ".." {
		return "", fmt.Errorf("%w: media name %q is outside uploads", ErrValidation, name)
	}
	return filepath.Join(l.uploadsDir, filepath.FromSlash(rel)), nil
}

// RecordThumbnail sets the thumbnail of a project, replacing any existing one.
// The previous file name is returned when it changed.
func (l *MediaLedger) RecordThumbnail(tx *gorm.DB, projectID, name string) (string, error) {
	name = NormalizeMediaPath(name)

	var current models.Thumbnail
	err := tx.Where("id_pro = ?", projectID).First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row := models.Thumbnail{ID: uuid.NewString(), ProjectID: projectID, Name: name}
		if err := tx.Create(&row).Error; err != nil {
			return "", fmt.Errorf("failed to insert thumbnail: %w", err)
		}
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if current.Name == name {
		return "", nil
	}
	if err := tx.Model(&current).Update("name", name).Error; err != nil {
		return "", fmt.Errorf("failed to replace thumbnail: %w", err)
	}
	return current.Name, nil
}

// RecordMedia appends media rows for a project
func (l *MediaLedger) RecordMedia(tx *gorm.DB, projectID string, names []string) error {
	if len(names) == 0 {
		return nil
	}

	rows := make([]models.Media, 0, len(names))
	for _, name := range names {
		rows = append(rows, models.Media{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			Name:      NormalizeMediaPath(name),
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert media: %w", err)
	}
	return nil
}

// RemoveMedia deletes the matching media rows of a project. Only names that
// matched a row are scheduled on the returned PendingRemoval; the files stay
// on disk until Purge is called after the transaction commits.
func (l *MediaLedger) RemoveMedia(tx *gorm.DB, projectID string, names []string) (*PendingRemoval, error) {
	pending := l.NewPendingRemoval()
	if len(names) == 0 {
		return pending, nil
	}

	normalized := make([]string, 0, len(names))
	for _, name := range names {
		normalized = append(normalized, NormalizeMediaPath(name))
	}

	var rows []models.Media
	if err := tx.Where("id_pro = ? AND name IN ?", projectID, normalized).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return pending, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
		pending.Add(row.Name)
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.Media{}).Error; err != nil {
		return nil, fmt.Errorf("failed to delete media: %w", err)
	}
	return pending, nil
}

// MediaFor lists the media names of a project
func (l *MediaLedger) MediaFor(db *gorm.DB, projectID string) ([]string, error) {
	names := make([]string, 0)
	err := db.Model(&models.Media{}).
		Where("id_pro = ?", projectID).
		Order("name").
		Pluck("name", &names).Error
	return names, err
}

// NewPendingRemoval starts an empty set of files to delete after commit
func (l *MediaLedger) NewPendingRemoval() *PendingRemoval {
	return &PendingRemoval{ledger: l}
}

// PendingRemoval is a set of media files whose rows were deleted in a
// transaction that has not committed yet
type PendingRemoval struct {
	ledger *MediaLedger
	names  []string
}

// Add schedules a stored media name for deletion
func (p *PendingRemoval) Add(name string) {
	p.names = append(p.names, name)
}

// Names returns the scheduled media names
func (p *PendingRemoval) Names() []string {
	return p.names
}

// Purge deletes the scheduled files. Failures are logged and counted and the
// number of files actually removed is returned.
func (p *PendingRemoval) Purge() int {
	if p == nil {
		return 0
	}

	removed := 0
	for _, name := range p.names {
		file, err := p.ledger.FilePath(name)
		if err == nil {
			err = os.Remove(file)
		}
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			mediaPurgeFailures.Inc()
			p.ledger.log.Warn("failed to remove media file", zap.String("name", name), zap.Error(err))
			continue
		}
		removed++
	}

	p.names = nil
	return removed
}
