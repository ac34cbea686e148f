package services

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/localnerve/kiosek/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHealthCheck(t *testing.T) {
	db := setupTestDB(t)
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer provider.Close()

	cfg := &config.Config{
		DBType:           "sqlite",
		DBDatabase:       "kiosek",
		SessionStore:     "redis",
		IdentityProvider: "portal",
		PortalURL:        provider.URL,
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	t.Run("healthy", func(t *testing.T) {
		result := HealthCheck(t.Context(), cfg, db, NewRedisStore(client), zap.NewNop())
		assert.Equal(t, "healthy", result.Status)
		assert.Equal(t, "ok", result.Database)
		assert.Equal(t, "ok", result.SessionStore)
		assert.Equal(t, "ok", result.IdentityProvider)
		assert.Empty(t, result.ErrorMessage)
	})

	t.Run("memory store has nothing to ping", func(t *testing.T) {
		result := HealthCheck(t.Context(), cfg, db, NewMemoryStore(), zap.NewNop())
		assert.Equal(t, "ok", result.SessionStore)
	})

	t.Run("redis down", func(t *testing.T) {
		mr.SetError("LOADING")
		defer mr.SetError("")

		result := HealthCheck(t.Context(), cfg, db, NewRedisStore(client), zap.NewNop())
		assert.Equal(t, "unhealthy", result.Status)
		assert.Equal(t, "unreachable", result.SessionStore)
		assert.Contains(t, result.ErrorMessage, "Session store")
	})

	t.Run("identity provider down", func(t *testing.T) {
		down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := down.URL
		down.Close()

		offline := *cfg
		offline.PortalURL = url
		result := HealthCheck(t.Context(), &offline, db, nil, zap.NewNop())
		assert.Equal(t, "unhealthy", result.Status)
		assert.Equal(t, "ok", result.Database)
		assert.Equal(t, "unreachable", result.IdentityProvider)
	})
}
