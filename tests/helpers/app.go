package helpers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/kiosek/internal/bootstrap"
	"github.com/localnerve/kiosek/internal/config"
	"github.com/localnerve/kiosek/internal/identity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do"
	"go.uber.org/zap"
)

// TestAdmin is on the admins allow-list of NewTestConfig
const TestAdmin = "teacher"

// NewTestConfig returns a config for an in-process app over a SQLite file and
// the memory session store, with uploads in a temp dir
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Port:                 "0",
		Environment:          "test",
		LogLevel:             "warn",
		CORSOrigins:          "*",
		DBType:               "sqlite",
		DBDatabase:           filepath.Join(dir, "kiosek.db"),
		DBConnectionLimit:    1,
		DBAutoMigrate:        true,
		TokenSecret:          "test-secret",
		TokenIssuer:          "http://localhost:5148",
		TokenAudience:        "http://localhost:3000",
		TokenValidityDays:    7,
		SessionStore:         "memory",
		UploadsDir:           filepath.Join(dir, "uploads"),
		ThumbnailMaxWidth:    800,
		ThumbnailMaxHeight:   600,
		ThumbnailQuality:     80,
		MaxUploadMB:          16,
		IdentityProvider:     "portal",
		PortalURL:            "http://127.0.0.1:1",
		PortalTimeoutSeconds: 1,
		AdminUsernames:       []string{TestAdmin},
		AdminCacheTTLSeconds: 0,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Invalid test config: %v", err)
	}
	return cfg
}

// NewTestApp builds the full app from the bootstrap container, replacing the
// identity verifier and giving the app a private metrics registry
func NewTestApp(t *testing.T, cfg *config.Config, verifier identity.Verifier) (*fiber.App, *do.Injector) {
	t.Helper()

	inj := bootstrap.BuildContainer(cfg, zap.NewNop())
	do.OverrideValue[identity.Verifier](inj, verifier)
	do.OverrideValue[prometheus.Registerer](inj, prometheus.NewRegistry())

	app, err := do.Invoke[*fiber.App](inj)
	if err != nil {
		t.Fatalf("Failed to build app: %v", err)
	}
	t.Cleanup(func() { _ = bootstrap.Close(inj) })

	return app, inj
}

// Do sends req to the app with a generous timeout for uploads
func Do(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("Request %s %s failed: %v", req.Method, req.URL, err)
	}
	return resp
}

// NewRequest builds a request with an optional bearer token
func NewRequest(method, target string, body io.Reader, token string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// NewJSONRequest builds a JSON request with an optional bearer token
func NewJSONRequest(t *testing.T, method, target string, body any, token string) *http.Request {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	req := NewRequest(method, target, bytes.NewReader(data), token)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// Login logs username in through the API and returns the session token
func Login(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()

	resp := Do(t, app, NewJSONRequest(t, http.MethodPost, "/api/auth/login",
		map[string]string{"username": username, "password": password}, ""))
	AssertStatus(t, resp, http.StatusOK)

	var body struct {
		Name  string `json:"name"`
		Token string `json:"token"`
	}
	ParseJSON(t, resp, &body)
	if body.Token == "" {
		t.Fatalf("Login for %s returned no token", username)
	}
	return body.Token
}
