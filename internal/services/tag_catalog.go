package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/localnerve/kiosek/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// TagDecision is the outcome of an administrator reviewing a tag
type TagDecision int

const (
	// TagApprove marks the tag as curated
	TagApprove TagDecision = iota
	// TagRejectAndDelete removes the tag and every link to it
	TagRejectAndDelete
)

// TagDecisionFor maps the approved flag of a review body to a decision
func TagDecisionFor(approved bool) TagDecision {
	if approved {
		return TagApprove
	}
	return TagRejectAndDelete
}

func (d TagDecision) String() string {
	if d == TagApprove {
		return "approve"
	}
	return "reject"
}

// TagCatalog owns the tags table
type TagCatalog struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewTagCatalog creates a TagCatalog
func NewTagCatalog(db *gorm.DB, log *zap.Logger) *TagCatalog {
	return &TagCatalog{db: db, log: log.Named("tags")}
}

// NormalizeTagNames trims names, drops empty ones and removes duplicates.
// Duplicates are compared case-insensitively and the first spelling wins.
func NormalizeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

// ResolveOrCreate maps every name to a tag id, creating the tags that do not exist yet
func (c *TagCatalog) ResolveOrCreate(ctx context.Context, names []string) (map[string]string, error) {
	var ids map[string]string
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ids, err = c.resolveOrCreate(tx, names)
		return err
	})
	return ids, err
}

// resolveOrCreate runs inside the caller's transaction.
// Concurrent callers may insert the same new name; the conflicting insert is
// skipped and the winner's row is read back.
func (c *TagCatalog) resolveOrCreate(tx *gorm.DB, names []string) (map[string]string, error) {
	names = NormalizeTagNames(names)
	ids := make(map[string]string, len(names))
	if len(names) == 0 {
		return ids, nil
	}

	var existing []models.Tag
	if err := tx.Where("name IN ?", names).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to look up tags: %w", err)
	}
	assignTagIDs(ids, names, existing)

	missing := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := ids[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return ids, nil
	}

	if err := c.insertTags(tx, missing); err != nil {
		return nil, err
	}

	var created []models.Tag
	var readBack *gorm.DB
	if tx.Dialector.Name() == "mysql" {
		// REPEATABLE READ hides rows a concurrent winner committed after this
		// transaction's snapshot. A shared locking read sees them.
		readBack = tx.Raw("SELECT * FROM tags WHERE name IN ? LOCK IN SHARE MODE", missing).Scan(&created)
	} else {
		readBack = tx.Where("name IN ?", missing).Find(&created)
	}
	if err := readBack.Error; err != nil {
		return nil, fmt.Errorf("failed to read back new tags: %w", err)
	}
	assignTagIDs(ids, missing, created)

	for _, name := range missing {
		if _, ok := ids[name]; !ok {
			return nil, fmt.Errorf("tag %q could not be resolved", name)
		}
	}

	c.log.Debug("created tags", zap.Strings("names", missing))
	return ids, nil
}

func (c *TagCatalog) insertTags(tx *gorm.DB, names []string) error {
	rows := make([]models.Tag, 0, len(names))
	for _, name := range names {
		rows = append(rows, models.Tag{ID: uuid.NewString(), Name: name})
	}

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert tags: %w", err)
	}
	return nil
}

// assignTagIDs fills ids keyed by the requested spelling. An exact match wins,
// otherwise a case-insensitive one is accepted for databases with a
// case-insensitive collation on tags.name.
func assignTagIDs(ids map[string]string, names []string, rows []models.Tag) {
	for _, name := range names {
		if _, ok := ids[name]; ok {
			continue
		}
		for _, row := range rows {
			if row.Name == name {
				ids[name] = row.ID
				break
			}
		}
		if _, ok := ids[name]; ok {
			continue
		}
		for _, row := range rows {
			if strings.EqualFold(row.Name, name) {
				ids[name] = row.ID
				break
			}
		}
	}
}

// ListAll returns every tag, approved or not
func (c *TagCatalog) ListAll(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := c.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// ListApprovedNames returns the names of curated tags
func (c *TagCatalog) ListApprovedNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	if err := c.db.WithContext(ctx).Model(&models.Tag{}).
		Where("added = ?", true).
		Order("name").
		Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

// Exists reports whether a tag id is known
func (c *TagCatalog) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Session(&gorm.Session{Logger: c.db.Logger.LogMode(logger.Silent)}).
		Model(&models.Tag{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// Review applies an administrator's decision to a tag.
// Rejecting is destructive: the tag row and all its project links are deleted.
func (c *TagCatalog) Review(ctx context.Context, id string, decision TagDecision) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tag models.Tag
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&tag).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTagNotFound
			}
			return err
		}

		switch decision {
		case TagApprove:
			return tx.Model(&tag).Update("added", true).Error
		case TagRejectAndDelete:
			if err := tx.Where("id_tag = ?", id).Delete(&models.Tagged{}).Error; err != nil {
				return err
			}
			return tx.Delete(&tag).Error
		}
		return fmt.Errorf("unknown tag decision %d", decision)
	})
	if err != nil {
		return err
	}

	c.log.Info("tag reviewed", zap.String("id", id), zap.Stringer("decision", decision))
	return nil
}

// namesForProjects loads the tag names linked to each project id
func namesForProjects(db *gorm.DB, projectIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(projectIDs))
	if len(projectIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ProjectID string
		Name      string
	}
	if err := db.Table("taged").
		Select("taged.id_pro AS project_id, tags.name AS name").
		Joins("JOIN tags ON tags.id = taged.id_tag").
		Where("taged.id_pro IN ?", projectIDs).
		Order("tags.name").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load project tags: %w", err)
	}

	for _, row := range rows {
		out[row.ProjectID] = append(out[row.ProjectID], row.Name)
	}
	return out, nil
}
