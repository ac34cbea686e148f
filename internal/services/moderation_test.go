package services

import (
	"testing"

	"github.com/localnerve/kiosek/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	all := []models.ProjectStatus{models.StatusWaiting, models.StatusApproved, models.StatusDenied}

	for _, from := range all {
		assert.True(t, CanTransition(from, models.StatusApproved, TriggerReview), from)
		assert.True(t, CanTransition(from, models.StatusDenied, TriggerReview), from)
		assert.False(t, CanTransition(from, models.StatusWaiting, TriggerReview), from)

		assert.True(t, CanTransition(from, models.StatusWaiting, TriggerEdit), from)
		assert.False(t, CanTransition(from, models.StatusApproved, TriggerEdit), from)
		assert.False(t, CanTransition(from, models.StatusDenied, TriggerEdit), from)
	}

	assert.False(t, CanTransition("X", models.StatusApproved, TriggerReview))
	assert.False(t, CanTransition(models.StatusWaiting, "X", TriggerReview))
	assert.False(t, CanTransition(models.StatusWaiting, models.StatusApproved, Trigger(99)))
}

func TestReviewProjectRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	project, _, _ := submitSample(t, env, "alice", "robotics")

	owner := env.login(t, "alice")
	assert.ErrorIs(t, env.moderation.ReviewProject(ctx, owner, project.ID, true), ErrForbidden)
	assert.ErrorIs(t, env.moderation.ReviewProject(ctx, "", project.ID, true), ErrForbidden)

	status, err := env.projects.Status(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, status)
}

func TestReviewProjectCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	project, _, _ := submitSample(t, env, "alice", "robotics")

	require.NoError(t, env.db.Create(&models.Admin{Username: "root"}).Error)
	admin := env.login(t, "root")

	require.NoError(t, env.moderation.ReviewProject(ctx, admin, project.ID, true))
	active, err := env.projects.IsActive(ctx, project.ID)
	require.NoError(t, err)
	assert.True(t, active)

	// A fresh review may retarget an approved project directly
	require.NoError(t, env.moderation.ReviewProject(ctx, admin, project.ID, false))
	status, err := env.projects.Status(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDenied, status)

	// An edit reopens review
	require.NoError(t, env.projects.Update(ctx, Edit{ID: project.ID, Name: "n", Description: "d"}))
	status, err = env.projects.Status(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, status)

	assert.ErrorIs(t, env.moderation.ReviewProject(ctx, admin, "missing", true), ErrProjectNotFound)
}

func TestReviewTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	ids, err := env.tags.ResolveOrCreate(ctx, []string{"robotics", "spam"})
	require.NoError(t, err)

	user := env.login(t, "alice")
	assert.ErrorIs(t, env.moderation.ReviewTag(ctx, user, ids["robotics"], true), ErrForbidden)

	require.NoError(t, env.db.Create(&models.Admin{Username: "root"}).Error)
	admin := env.login(t, "root")

	require.NoError(t, env.moderation.ReviewTag(ctx, admin, ids["robotics"], true))
	require.NoError(t, env.moderation.ReviewTag(ctx, admin, ids["spam"], false))
	assert.ErrorIs(t, env.moderation.ReviewTag(ctx, admin, ids["spam"], false), ErrTagNotFound)

	names, err := env.tags.ListApprovedNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"robotics"}, names)
}

func TestReviewTarget(t *testing.T) {
	assert.Equal(t, models.StatusApproved, ReviewTarget(true))
	assert.Equal(t, models.StatusDenied, ReviewTarget(false))
}
