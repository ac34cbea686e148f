package middleware

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/kiosek/internal/services"
	"github.com/localnerve/kiosek/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGuard struct {
	sessions map[string]string
	admins   map[string]bool
	owners   map[string]string
}

func (g *fakeGuard) Identity(_ context.Context, token string) (services.Identity, bool) {
	user, ok := g.sessions[token]
	return services.Identity{Username: user}, ok
}

func (g *fakeGuard) IsOwner(_ context.Context, id, token string) bool {
	user, ok := g.sessions[token]
	return ok && g.owners[id] == user
}

func (g *fakeGuard) IsAdmin(_ context.Context, token string) bool {
	user, ok := g.sessions[token]
	return ok && g.admins[user]
}

type fakeProjects map[string]bool

func (p fakeProjects) Exists(_ context.Context, id string) (bool, error) {
	if id == "broken" {
		return false, errors.New("db down")
	}
	return p[id], nil
}

func newApp(handler fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var ce *types.CustomError
			if errors.As(err, &ce) {
				return c.SendStatus(ce.Code)
			}
			return c.SendStatus(fiber.StatusInternalServerError)
		},
	})
	app.Use(RequestLogger(zap.NewNop()))
	app.Get("/", handler, func(c *fiber.Ctx) error {
		identity, ok := IdentityFrom(c)
		if !ok || TokenFrom(c) == "" {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.SendString(identity.Username)
	})
	return app
}

func call(t *testing.T, app *fiber.App, target, token string) int {
	t.Helper()

	req := httptest.NewRequest("GET", target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func testGuard() *fakeGuard {
	return &fakeGuard{
		sessions: map[string]string{"t-alice": "alice", "t-root": "root"},
		admins:   map[string]bool{"root": true},
		owners:   map[string]string{"p1": "alice"},
	}
}

func TestBearerToken(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(BearerToken(c)) })

	for header, want := range map[string]string{
		"Bearer abc":   "abc",
		"Bearer  abc ": "abc",
		"Basic abc":    "",
		"":             "",
		"bearer abc":   "",
	} {
		req := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, want, string(body), header)
	}
}

func TestRequireAuthenticated(t *testing.T) {
	app := newApp(RequireAuthenticated(testGuard()))

	assert.Equal(t, fiber.StatusOK, call(t, app, "/", "t-alice"))
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "/", ""))
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "/", "t-unknown"))
}

func TestRequireAdmin(t *testing.T) {
	app := newApp(RequireAdmin(testGuard()))

	assert.Equal(t, fiber.StatusOK, call(t, app, "/", "t-root"))
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "/", "t-alice"))
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "/", ""))
}

func TestRequireOwner(t *testing.T) {
	app := newApp(RequireOwner(testGuard(), fakeProjects{"p1": true, "p2": true}))

	assert.Equal(t, fiber.StatusOK, call(t, app, "/?id=p1", "t-alice"))
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "/?id=p2", "t-alice"))
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "/?id=p1", "t-root"))
	assert.Equal(t, fiber.StatusBadRequest, call(t, app, "/", "t-alice"))
	assert.Equal(t, fiber.StatusBadRequest, call(t, app, "/?id=nope", "t-alice"))
	assert.Equal(t, fiber.StatusInternalServerError, call(t, app, "/?id=broken", "t-alice"))
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "/?id=p1", ""))
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop()))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderRequestID, "given-id")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "given-id", resp.Header.Get(HeaderRequestID))
}
