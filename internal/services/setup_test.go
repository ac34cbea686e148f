package services

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/localnerve/kiosek/internal/config"
	"github.com/localnerve/kiosek/internal/database"
	"github.com/localnerve/kiosek/internal/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.Config{
		DBType:            "sqlite",
		DBDatabase:        filepath.Join(t.TempDir(), "kiosek.db"),
		DBConnectionLimit: 1,
	}
	db, err := database.Connect(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	return db
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db         *gorm.DB
	uploadsDir string
	clock      *fakeClock
	store      *MemoryStore
	sessions   *SessionRegistry
	tags       *TagCatalog
	media      *MediaLedger
	projects   *ProjectStore
	guard      *AuthorizationGuard
	moderation *ModerationWorkflow
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := zap.NewNop()
	env := &testEnv{
		db:         setupTestDB(t),
		uploadsDir: filepath.Join(t.TempDir(), "uploads"),
		clock:      newFakeClock(),
		store:      NewMemoryStore(),
	}
	env.sessions = NewSessionRegistry(env.store, SessionOptions{
		Secret:   "test-secret",
		Issuer:   "http://localhost:5148",
		Audience: "http://localhost:3000",
		Validity: 7 * 24 * time.Hour,
		Clock:    env.clock.Now,
	}, log)
	env.tags = NewTagCatalog(env.db, log)
	env.media = NewMediaLedger(env.uploadsDir, log)
	env.projects = NewProjectStore(env.db, env.tags, env.media, log).WithClock(env.clock.Now)
	env.guard = NewAuthorizationGuard(env.sessions, env.projects, env.db, time.Minute, log)
	env.moderation = NewModerationWorkflow(env.guard, env.projects, env.tags, log)
	return env
}

// writeUpload creates a file under the uploads directory and returns its stored name
func (e *testEnv) writeUpload(t *testing.T, kind, file string) string {
	t.Helper()

	dir := filepath.Join(e.uploadsDir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create upload dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), []byte("data"), 0o644); err != nil {
		t.Fatalf("Failed to write upload: %v", err)
	}
	return UploadsPrefix + kind + "/" + file
}

func (e *testEnv) uploadExists(name string) bool {
	file, err := e.media.FilePath(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(file)
	return err == nil
}

func (e *testEnv) login(t *testing.T, username string) string {
	t.Helper()

	token, err := e.sessions.Issue(t.Context(), Identity{Username: username, Name: username})
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return token
}

// seedProject inserts a bare project row
func (e *testEnv) seedProject(t *testing.T, id, author string, status models.ProjectStatus) {
	t.Helper()

	project := models.Project{
		ID:          id,
		Name:        "Seeded " + id,
		Description: "seeded",
		Date:        datatypes.Date(e.clock.Now()),
		Status:      status,
		Author:      author,
	}
	if err := e.db.Omit(clause.Associations).Create(&project).Error; err != nil {
		t.Fatalf("Failed to seed project: %v", err)
	}
}
