package services

import (
	"testing"
	"time"

	"github.com/localnerve/kiosek/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIsOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	env.seedProject(t, "p1", "alice", models.StatusWaiting)

	alice := env.login(t, "alice")
	bob := env.login(t, "bob")

	assert.True(t, env.guard.IsOwner(ctx, "p1", alice))
	assert.False(t, env.guard.IsOwner(ctx, "p1", bob))
	assert.False(t, env.guard.IsOwner(ctx, "missing", alice))
	assert.False(t, env.guard.IsOwner(ctx, "p1", ""))
	assert.False(t, env.guard.IsOwner(ctx, "p1", "garbage"))

	env.clock.Advance(8 * 24 * time.Hour)
	assert.False(t, env.guard.IsOwner(ctx, "p1", alice), "expired token")
}

func TestIsAuthenticated(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	token := env.login(t, "alice")
	assert.True(t, env.guard.IsAuthenticated(ctx, token))
	assert.False(t, env.guard.IsAuthenticated(ctx, "nope"))

	identity, ok := env.guard.Identity(ctx, token)
	require.True(t, ok)
	assert.Equal(t, "alice", identity.Username)
}

func TestIsAdminUsesAllowList(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	require.NoError(t, env.db.Create(&models.Admin{Username: "root"}).Error)

	root := env.login(t, "root")
	alice := env.login(t, "alice")

	assert.True(t, env.guard.IsAdmin(ctx, root))
	assert.False(t, env.guard.IsAdmin(ctx, alice))
	assert.False(t, env.guard.IsAdmin(ctx, ""))

	// Cached answers survive until the TTL runs out
	require.NoError(t, env.db.Where("username = ?", "root").Delete(&models.Admin{}).Error)
	assert.True(t, env.guard.IsAdmin(ctx, root))
}

func TestIsAdminWithoutCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	guard := NewAuthorizationGuard(env.sessions, env.projects, env.db, 0, zap.NewNop())

	require.NoError(t, env.db.Create(&models.Admin{Username: "root"}).Error)
	root := env.login(t, "root")
	assert.True(t, guard.IsAdmin(ctx, root))

	require.NoError(t, env.db.Where("username = ?", "root").Delete(&models.Admin{}).Error)
	assert.False(t, guard.IsAdmin(ctx, root))
}

func TestGuardFailsClosedOnDatabaseError(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	env.seedProject(t, "p1", "alice", models.StatusWaiting)
	alice := env.login(t, "alice")

	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	guard := NewAuthorizationGuard(env.sessions, env.projects, env.db, 0, zap.NewNop())
	assert.False(t, guard.IsAdmin(ctx, alice))
	assert.False(t, guard.IsOwner(ctx, "p1", alice))
}
