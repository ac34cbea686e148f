package services

import (
	"errors"
	"testing"
	"time"

	"github.com/localnerve/kiosek/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}

func submitSample(t *testing.T, env *testEnv, owner string, tags ...string) (*models.Project, string, []string) {
	t.Helper()

	thumb := env.writeUpload(t, "thumbnails", owner+"-thumb.jpg")
	media := []string{
		env.writeUpload(t, "media", owner+"-1.png"),
		env.writeUpload(t, "media", owner+"-2.png"),
	}
	project, err := env.projects.Submit(t.Context(), Submission{
		Name:        "Weather station",
		Description: "Collects <b>weather</b> data",
		Tags:        tags,
		Thumbnail:   thumb,
		Media:       media,
	}, owner)
	require.NoError(t, err)
	return project, thumb, media
}

func TestSubmitCommitsEverything(t *testing.T) {
	env := newTestEnv(t)
	project, thumb, media := submitSample(t, env, "alice", "robotics", "iot")

	assert.Equal(t, models.StatusWaiting, project.Status)

	detail, err := env.projects.GetProject(t.Context(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Weather station", detail.Name)
	assert.Equal(t, "alice", detail.Author)
	assert.Equal(t, thumb, detail.Thumbnail)
	assert.ElementsMatch(t, media, detail.Media)
	assert.ElementsMatch(t, []string{"robotics", "iot"}, detail.Tags)
	assert.Equal(t, models.StatusWaiting, detail.Status)

	y, m, d := env.clock.Now().Date()
	cy, cm, cd := detail.Created.Date()
	assert.Equal(t, []int{y, int(m), d}, []int{cy, int(cm), cd})
}

func TestSubmitRollsBackOnFailure(t *testing.T) {
	env := newTestEnv(t)

	// Fail the tag link insert, the last step of a submission
	require.NoError(t, env.db.Callback().Create().Before("gorm:create").Register("test:fail_taged", func(tx *gorm.DB) {
		if tx.Statement.Table == "taged" {
			_ = tx.AddError(errors.New("taged insert failed"))
		}
	}))

	thumb := env.writeUpload(t, "thumbnails", "t.jpg")
	_, err := env.projects.Submit(t.Context(), Submission{
		Name: "Broken", Description: "never stored", Tags: []string{"robotics"},
		Thumbnail: thumb, Media: []string{"uploads/media/m.png"},
	}, "alice")
	require.Error(t, err)

	assert.Zero(t, countRows(t, env.db, &models.Project{}))
	assert.Zero(t, countRows(t, env.db, &models.Thumbnail{}))
	assert.Zero(t, countRows(t, env.db, &models.Media{}))
	assert.Zero(t, countRows(t, env.db, &models.Tag{}))
	assert.Zero(t, countRows(t, env.db, &models.Tagged{}))
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	_, err := env.projects.Submit(ctx, Submission{Description: "d", Thumbnail: "uploads/thumbnails/x.jpg"}, "alice")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.projects.Submit(ctx, Submission{Name: "n", Description: "d"}, "alice")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.projects.Submit(ctx, Submission{Name: "n", Description: "d", Thumbnail: "uploads/thumbnails/x.jpg"}, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateAlwaysResetsStatus(t *testing.T) {
	for _, prior := range []models.ProjectStatus{models.StatusApproved, models.StatusDenied, models.StatusWaiting} {
		t.Run(string(prior), func(t *testing.T) {
			env := newTestEnv(t)
			project, _, _ := submitSample(t, env, "alice", "robotics")
			require.NoError(t, env.projects.SetStatus(t.Context(), project.ID, prior))

			require.NoError(t, env.projects.Update(t.Context(), Edit{
				ID: project.ID, Name: "Renamed", Description: "Changed", Tags: []string{"robotics"},
			}))

			status, err := env.projects.Status(t.Context(), project.ID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusWaiting, status)
		})
	}
}

func TestUpdateReplacesTagSet(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	project, _, _ := submitSample(t, env, "alice", "A", "B")

	require.NoError(t, env.projects.Update(ctx, Edit{
		ID: project.ID, Name: "n", Description: "d", Tags: []string{"C", "B"},
	}))

	detail, err := env.projects.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"B", "C"}, detail.Tags)
	assert.Equal(t, int64(2), countRows(t, env.db, &models.Tagged{}))

	// Omitting every tag unlinks them all; the tags themselves remain
	require.NoError(t, env.projects.Update(ctx, Edit{ID: project.ID, Name: "n", Description: "d"}))
	detail, err = env.projects.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Tags)
	assert.Equal(t, int64(3), countRows(t, env.db, &models.Tag{}))
}

func TestSetTagsCollapsesCaseVariants(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	project, _, _ := submitSample(t, env, "alice")

	require.NoError(t, env.projects.SetTags(ctx, project.ID, []string{"AI", "ai", " AI "}))

	detail, err := env.projects.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"AI"}, detail.Tags)
	assert.Equal(t, int64(1), countRows(t, env.db, &models.Tagged{}))
}

func TestUpdateMediaAndThumbnail(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	project, oldThumb, media := submitSample(t, env, "alice", "robotics")

	added := env.writeUpload(t, "media", "added.png")
	newThumb := env.writeUpload(t, "thumbnails", "new.jpg")

	require.NoError(t, env.projects.Update(ctx, Edit{
		ID:           project.ID,
		Name:         "n",
		Description:  "d",
		Tags:         []string{"robotics"},
		RemovedMedia: []string{media[0]},
		AddedMedia:   []string{added},
		Thumbnail:    newThumb,
	}))

	detail, err := env.projects.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{media[1], added}, detail.Media)
	assert.Equal(t, newThumb, detail.Thumbnail)

	assert.False(t, env.uploadExists(media[0]), "removed media file deleted after commit")
	assert.False(t, env.uploadExists(oldThumb), "replaced thumbnail file deleted after commit")
	assert.True(t, env.uploadExists(media[1]))
	assert.True(t, env.uploadExists(newThumb))
}

func TestUpdateRollbackKeepsFiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	project, _, media := submitSample(t, env, "alice", "robotics")

	require.NoError(t, env.db.Callback().Create().Before("gorm:create").Register("test:fail_taged", func(tx *gorm.DB) {
		if tx.Statement.Table == "taged" {
			_ = tx.AddError(errors.New("taged insert failed"))
		}
	}))

	err := env.projects.Update(ctx, Edit{
		ID: project.ID, Name: "n", Description: "d", Tags: []string{"ai"}, RemovedMedia: []string{media[0]},
	})
	require.Error(t, err)
	assert.True(t, env.uploadExists(media[0]))

	detail, err := env.projects.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Weather station", detail.Name)
	assert.ElementsMatch(t, media, detail.Media)
	assert.Equal(t, []string{"robotics"}, detail.Tags)
}

func TestUpdateUnknownProject(t *testing.T) {
	env := newTestEnv(t)
	err := env.projects.Update(t.Context(), Edit{ID: "missing", Name: "n", Description: "d"})
	assert.ErrorIs(t, err, ErrProjectNotFound)

	err = env.projects.Update(t.Context(), Edit{ID: "missing"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetTagsAndSetStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	project, _, _ := submitSample(t, env, "alice", "robotics")

	require.NoError(t, env.projects.SetTags(ctx, project.ID, []string{"ai", "ai", " iot "}))
	detail, err := env.projects.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ai", "iot"}, detail.Tags)

	assert.ErrorIs(t, env.projects.SetTags(ctx, "missing", []string{"ai"}), ErrProjectNotFound)

	require.NoError(t, env.projects.SetStatus(ctx, project.ID, models.StatusApproved))
	require.NoError(t, env.projects.SetStatus(ctx, project.ID, models.StatusApproved))
	assert.ErrorIs(t, env.projects.SetStatus(ctx, project.ID, "X"), ErrInvalidStatus)
	assert.ErrorIs(t, env.projects.SetStatus(ctx, "missing", models.StatusDenied), ErrProjectNotFound)
}

func TestIsActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	env.seedProject(t, "waiting", "alice", models.StatusWaiting)
	env.seedProject(t, "approved", "alice", models.StatusApproved)
	env.seedProject(t, "denied", "alice", models.StatusDenied)

	for id, want := range map[string]bool{
		"waiting":  false,
		"approved": true,
		"denied":   false,
		"missing":  false,
	} {
		active, err := env.projects.IsActive(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, active, id)
	}
}

func TestPreviewsAndModerationReads(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	first, _, _ := submitSample(t, env, "alice", "robotics")
	env.clock.Advance(24 * time.Hour)
	second, _, _ := submitSample(t, env, "bob", "iot", "ai")
	env.clock.Advance(24 * time.Hour)
	third, _, _ := submitSample(t, env, "alice")

	require.NoError(t, env.projects.SetStatus(ctx, first.ID, models.StatusApproved))
	require.NoError(t, env.projects.SetStatus(ctx, second.ID, models.StatusApproved))

	public, err := env.projects.GetPreviewProjects(ctx)
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, second.ID, public[0].ID, "newest first")
	assert.ElementsMatch(t, []string{"iot", "ai"}, public[0].Tags)
	assert.NotEmpty(t, public[0].Thumbnail)

	mine, err := env.projects.GetPreviewProjectsByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, third.ID, mine[0].ID)
	assert.Equal(t, models.StatusWaiting, mine[0].Status)
	assert.Equal(t, []string{}, mine[0].Tags)
	assert.Equal(t, models.StatusApproved, mine[1].Status)

	none, err := env.projects.GetPreviewProjectsByOwner(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	queue, err := env.projects.GetModerationQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.Equal(t, third.ID, queue[0], "waiting projects first")

	summary, err := env.projects.GetModerationSummary(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, summary.Status)
	assert.Equal(t, "Approved.", summary.Status.CheckupLabel())

	_, err = env.projects.GetModerationSummary(ctx, "missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)
	_, err = env.projects.GetProject(ctx, "missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)

	author, err := env.projects.Author(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", author)

	exists, err := env.projects.Exists(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestApprovedOnlyUsesStatusIndexOnMySQL(t *testing.T) {
	render := func(db *gorm.DB) string {
		return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			return tx.Model(&models.Project{}).Scopes(approvedOnly).Find(&[]models.Project{})
		})
	}

	mysqlDB, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "kiosek:kiosek@tcp(127.0.0.1:1)/kiosek",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	query := render(mysqlDB)
	assert.Contains(t, query, "USE INDEX (`idx_projects_status`)")
	assert.Contains(t, query, "projects.status = 'A'")

	assert.NotContains(t, render(setupTestDB(t)), "USE INDEX")
}
