// project_store.go
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

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/kiosek/internal/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/hints"
)

// Submission is a new project as sent by its author
type Submission struct {
	Name        string
	Description string
	Tags        []string
	Thumbnail   string
	Media       []string
}

// Edit is an owner's change to an existing project.
// Tags is the complete tag list; tags left out are unlinked.
// An empty Thumbnail keeps the current one.
type Edit struct {
	ID           string
	Name         string
	Description  string
	Tags         []string
	RemovedMedia []string
	AddedMedia   []string
	Thumbnail    string
}

// ProjectDetail is the full view of a project
type ProjectDetail struct {
	ID          string
	Name        string
	Description string
	Tags        []string
	Thumbnail   string
	Media       []string
	Status      models.ProjectStatus
	Author      string
	Created     time.Time
}

// ProjectPreview is a project as shown in a list
type ProjectPreview struct {
	ID        string
	Name      string
	Thumbnail string
	Tags      []string
	Status    models.ProjectStatus
	Created   time.Time
}

// ModerationSummary is the status card of a project on the moderation screen
type ModerationSummary struct {
	ID        string
	Name      string
	Thumbnail string
	Status    models.ProjectStatus
}

// ProjectStore owns projects and their thumbnail, media and tag link rows
type ProjectStore struct {
	db    *gorm.DB
	tags  *TagCatalog
	media *MediaLedger
	log   *zap.Logger
	now   func() time.Time
}

// NewProjectStore creates a ProjectStore
func NewProjectStore(db *gorm.DB, tags *TagCatalog, media *MediaLedger, log *zap.Logger) *ProjectStore {
	return &ProjectStore{
		db:    db,
		tags:  tags,
		media: media,
		log:   log.Named("projects"),
		now:   time.Now,
	}
}

// WithClock replaces the clock used to date new projects
func (s *ProjectStore) WithClock(now func() time.Time) *ProjectStore {
	s.now = now
	return s
}

func validateText(name, description string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(description) == "" {
		return fmt.Errorf("%w: name and description are required", ErrValidation)
	}
	return nil
}

// Submit stores a new project with status Waiting. Every row is written in one
// transaction; on error nothing is kept.
func (s *ProjectStore) Submit(ctx context.Context, sub Submission, owner string) (*models.Project, error) {
	if err := validateText(sub.Name, sub.Description); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sub.Thumbnail) == "" {
		return nil, fmt.Errorf("%w: thumbnail is required", ErrValidation)
	}
	if strings.TrimSpace(owner) == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrValidation)
	}

	project := &models.Project{
		ID:          uuid.NewString(),
		Name:        sub.Name,
		Description: sub.Description,
		Date:        datatypes.Date(s.now()),
		Status:      models.StatusWaiting,
		Author:      owner,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(project).Error; err != nil {
			return fmt.Errorf("failed to insert project: %w", err)
		}
		if _, err := s.media.RecordThumbnail(tx, project.ID, sub.Thumbnail); err != nil {
			return err
		}
		if err := s.media.RecordMedia(tx, project.ID, sub.Media); err != nil {
			return err
		}
		return s.linkTags(tx, project.ID, sub.Tags)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("project submitted", zap.String("id", project.ID), zap.String("author", owner))
	return project, nil
}

// Update applies an owner's edit. The project always goes back to Waiting and
// its tag links are rebuilt from edit.Tags. Files of removed media are deleted
// once the transaction has committed.
func (s *ProjectStore) Update(ctx context.Context, edit Edit) error {
	if err := validateText(edit.Name, edit.Description); err != nil {
		return err
	}

	var pending *PendingRemoval
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", edit.ID).
			First(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return err
		}

		if !CanTransition(project.Status, models.StatusWaiting, TriggerEdit) {
			return ErrInvalidTransition
		}

		if err := tx.Model(&project).Updates(map[string]any{
			"name":        edit.Name,
			"description": edit.Description,
			"status":      models.StatusWaiting,
		}).Error; err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}

		var err error
		pending, err = s.media.RemoveMedia(tx, project.ID, edit.RemovedMedia)
		if err != nil {
			return err
		}
		if err := s.media.RecordMedia(tx, project.ID, edit.AddedMedia); err != nil {
			return err
		}

		if strings.TrimSpace(edit.Thumbnail) != "" {
			previous, err := s.media.RecordThumbnail(tx, project.ID, edit.Thumbnail)
			if err != nil {
				return err
			}
			if previous != "" {
				pending.Add(previous)
			}
		}

		return s.setTags(tx, project.ID, edit.Tags)
	})
	if err != nil {
		return err
	}

	removed := pending.Purge()
	s.log.Info("project updated",
		zap.String("id", edit.ID),
		zap.Int("media_added", len(edit.AddedMedia)),
		zap.Int("files_removed", removed),
	)
	return nil
}

// SetTags replaces the complete tag set of a project
func (s *ProjectStore) SetTags(ctx context.Context, projectID string, names []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrProjectNotFound
		}
		return s.setTags(tx, projectID, names)
	})
}

func (s *ProjectStore) setTags(tx *gorm.DB, projectID string, names []string) error {
	if err := tx.Where("id_pro = ?", projectID).Delete(&models.Tagged{}).Error; err != nil {
		return fmt.Errorf("failed to clear tag links: %w", err)
	}
	return s.linkTags(tx, projectID, names)
}

// linkTags resolves names to ids and inserts one link per name
func (s *ProjectStore) linkTags(tx *gorm.DB, projectID string, names []string) error {
	names = NormalizeTagNames(names)
	if len(names) == 0 {
		return nil
	}

	ids, err := s.tags.resolveOrCreate(tx, names)
	if err != nil {
		return err
	}

	links := make([]models.Tagged, 0, len(names))
	linked := make(map[string]struct{}, len(names))
	for _, name := range names {
		tagID := ids[name]
		if _, ok := linked[tagID]; ok {
			continue
		}
		linked[tagID] = struct{}{}
		links = append(links, models.Tagged{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			TagID:     tagID,
		})
	}

	if err := tx.Create(&links).Error; err != nil {
		return fmt.Errorf("failed to link tags: %w", err)
	}
	return nil
}

// SetStatus changes the moderation status of a project
func (s *ProjectStore) SetStatus(ctx context.Context, id string, status models.ProjectStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Project{}).Where("id = ?", id).Update("status", status)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		// MySQL reports zero affected rows when the value did not change
		var count int64
		if err := tx.Model(&models.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrProjectNotFound
		}
		return nil
	})
}

func (s *ProjectStore) quiet(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Session(&gorm.Session{Logger: s.db.Logger.LogMode(logger.Silent)})
}

// Status returns the current moderation status of a project
func (s *ProjectStore) Status(ctx context.Context, id string) (models.ProjectStatus, error) {
	var project models.Project
	if err := s.quiet(ctx).Select("id", "status").Where("id = ?", id).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrProjectNotFound
		}
		return "", err
	}
	return project.Status, nil
}

// GetProject loads the full detail of a project regardless of its status
func (s *ProjectStore) GetProject(ctx context.Context, id string) (*ProjectDetail, error) {
	db := s.quiet(ctx)

	var project models.Project
	if err := db.Preload("Thumbnail").Where("id = ?", id).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	tags, err := namesForProjects(db, []string{id})
	if err != nil {
		return nil, err
	}
	media, err := s.media.MediaFor(db, id)
	if err != nil {
		return nil, err
	}

	detail := &ProjectDetail{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		Tags:        tags[id],
		Media:       media,
		Status:      project.Status,
		Author:      project.Author,
		Created:     time.Time(project.Date),
	}
	if project.Thumbnail != nil {
		detail.Thumbnail = project.Thumbnail.Name
	}
	if detail.Tags == nil {
		detail.Tags = []string{}
	}
	return detail, nil
}

// GetPreviewProjects lists approved projects
func (s *ProjectStore) GetPreviewProjects(ctx context.Context) ([]ProjectPreview, error) {
	return s.previews(s.quiet(ctx).Scopes(approvedOnly))
}

// approvedOnly filters approved projects. On MySQL the status index is forced
// for the low-cardinality column.
func approvedOnly(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "mysql" {
		db = db.Clauses(hints.UseIndex(projectStatusIndex))
	}
	return db.Where("projects.status = ?", models.StatusApproved)
}

// GetPreviewProjectsByOwner lists every project of one author with its status
func (s *ProjectStore) GetPreviewProjectsByOwner(ctx context.Context, owner string) ([]ProjectPreview, error) {
	if owner == "" {
		return []ProjectPreview{}, nil
	}
	return s.previews(s.quiet(ctx).Where("projects.author = ?", owner))
}

func (s *ProjectStore) previews(query *gorm.DB) ([]ProjectPreview, error) {
	var projects []models.Project
	if err := query.Preload("Thumbnail").
		Order("projects.date DESC").
		Order("projects.name").
		Find(&projects).Error; err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	tags, err := namesForProjects(query.Session(&gorm.Session{NewDB: true}), ids)
	if err != nil {
		return nil, err
	}

	out := make([]ProjectPreview, 0, len(projects))
	for _, p := range projects {
		preview := ProjectPreview{
			ID:      p.ID,
			Name:    p.Name,
			Tags:    tags[p.ID],
			Status:  p.Status,
			Created: time.Time(p.Date),
		}
		if p.Thumbnail != nil {
			preview.Thumbnail = p.Thumbnail.Name
		}
		if preview.Tags == nil {
			preview.Tags = []string{}
		}
		out = append(out, preview)
	}
	return out, nil
}

// projectStatusIndex is the index GORM and data/initdb create on projects.status
const projectStatusIndex = "idx_projects_status"

// GetModerationQueue lists the ids of all projects, waiting ones first.
// The query carries a comment tag for slow-query logs.
func (s *ProjectStore) GetModerationQueue(ctx context.Context) ([]string, error) {
	var rows []models.Project
	if err := s.quiet(ctx).
		Clauses(hints.CommentBefore("select", "kiosek:moderation-queue")).
		Select("id", "status", "date").
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "CASE WHEN status = ? THEN 0 ELSE 1 END, date DESC, id",
			Vars: []any{models.StatusWaiting},
		}}).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// GetModerationSummary loads the status card of a project
func (s *ProjectStore) GetModerationSummary(ctx context.Context, id string) (*ModerationSummary, error) {
	var project models.Project
	if err := s.quiet(ctx).Preload("Thumbnail").Where("id = ?", id).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	summary := &ModerationSummary{ID: project.ID, Name: project.Name, Status: project.Status}
	if project.Thumbnail != nil {
		summary.Thumbnail = project.Thumbnail.Name
	}
	return summary, nil
}

// IsActive reports whether a project is publicly visible
func (s *ProjectStore) IsActive(ctx context.Context, id string) (bool, error) {
	status, err := s.Status(ctx, id)
	if errors.Is(err, ErrProjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status == models.StatusApproved, nil
}

// Exists reports whether a project id is known
func (s *ProjectStore) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := s.quiet(ctx).Model(&models.Project{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Author returns the username that submitted a project
func (s *ProjectStore) Author(ctx context.Context, id string) (string, error) {
	var project models.Project
	if err := s.quiet(ctx).Select("id", "author").Where("id = ?", id).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrProjectNotFound
		}
		return "", err
	}
	return project.Author, nil
}
