// moderation.go
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

	"github.com/localnerve/kiosek/internal/models"
	"go.uber.org/zap"
)

// Trigger is what causes a status change
type Trigger int

const (
	// TriggerReview is an administrator's decision
	TriggerReview Trigger = iota
	// TriggerEdit is the owner changing the project
	TriggerEdit
)

// CanTransition reports whether a project may move from one status to another.
// A review can move a project from any state to Approved or Denied, an edit
// always sends it back to Waiting. There is no terminal state.
func CanTransition(from, to models.ProjectStatus, trigger Trigger) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}

	switch trigger {
	case TriggerReview:
		return to == models.StatusApproved || to == models.StatusDenied
	case TriggerEdit:
		return to == models.StatusWaiting
	}
	return false
}

// ReviewTarget is the status a review decision moves a project to
func ReviewTarget(approved bool) models.ProjectStatus {
	if approved {
		return models.StatusApproved
	}
	return models.StatusDenied
}

// ModerationWorkflow applies administrator decisions to projects and tags
type ModerationWorkflow struct {
	guard    *AuthorizationGuard
	projects *ProjectStore
	tags     *TagCatalog
	log      *zap.Logger
}

// NewModerationWorkflow creates a ModerationWorkflow
func NewModerationWorkflow(guard *AuthorizationGuard, projects *ProjectStore, tags *TagCatalog, log *zap.Logger) *ModerationWorkflow {
	return &ModerationWorkflow{
		guard:    guard,
		projects: projects,
		tags:     tags,
		log:      log.Named("moderation"),
	}
}

// ReviewProject approves or denies a project on behalf of the token holder
func (w *ModerationWorkflow) ReviewProject(ctx context.Context, token, id string, approved bool) error {
	if !w.guard.IsAdmin(ctx, token) {
		return ErrForbidden
	}

	current, err := w.projects.Status(ctx, id)
	if err != nil {
		return err
	}

	target := ReviewTarget(approved)
	if !CanTransition(current, target, TriggerReview) {
		return ErrInvalidTransition
	}
	if err := w.projects.SetStatus(ctx, id, target); err != nil {
		return err
	}

	moderationDecisions.WithLabelValues("project", string(target)).Inc()
	w.log.Info("project reviewed",
		zap.String("id", id),
		zap.String("from", string(current)),
		zap.String("to", string(target)),
	)
	return nil
}

// ReviewTag approves a tag or deletes it on behalf of the token holder
func (w *ModerationWorkflow) ReviewTag(ctx context.Context, token, id string, approved bool) error {
	if !w.guard.IsAdmin(ctx, token) {
		return ErrForbidden
	}

	decision := TagDecisionFor(approved)
	if err := w.tags.Review(ctx, id, decision); err != nil {
		return err
	}

	moderationDecisions.WithLabelValues("tag", decision.String()).Inc()
	return nil
}
