package repo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestUserRepo_Register(t *testing.T) {
	d := newTestDB(t)
	r := NewUserRepo(d)
	ctx := context.Background()

	u := seedUser(t, d, "alice")
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.NotEqual(t, uuid.Nil, u.TenantID)

	var sub model.Subscription
	require.NoError(t, d.Preload("Plan").Where("tenant_id = ?", u.TenantID).First(&sub).Error)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, model.FreePlanName, sub.Plan.Name)

	limit, err := r.ProjectLimit(ctx, u.TenantID)
	require.NoError(t, err)
	assert.Equal(t, 3, limit)

	// a second registration reuses the free plan
	seedUser(t, d, "bob")
	var plans int64
	require.NoError(t, d.Model(&model.Plan{}).Count(&plans).Error)
	assert.Equal(t, int64(1), plans)

	got, err := r.Get(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Tenant)
	assert.Equal(t, "alice's Organization", got.Tenant.Name)
}

func TestUserRepo_DuplicateEmail(t *testing.T) {
	d := newTestDB(t)
	r := NewUserRepo(d)
	ctx := context.Background()

	seedUser(t, d, "alice")

	taken, err := r.Taken(ctx, "someone", "ALICE@example.com", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = r.Taken(ctx, "someone", "someone@example.com", uuid.Nil)
	require.NoError(t, err)
	assert.False(t, taken)

	// the unique index rejects duplicates and the whole registration rolls back
	dup := &model.User{Username: "alice2", Email: "alice@example.com", PasswordHash: "x", IsActive: true}
	err = r.Register(ctx, &model.Tenant{Name: "dup"}, dup)
	require.Error(t, err)

	var tenants int64
	require.NoError(t, d.Model(&model.Tenant{}).Count(&tenants).Error)
	assert.Equal(t, int64(1), tenants)
}

func TestUserRepo_GetByIdentifier(t *testing.T) {
	d := newTestDB(t)
	r := NewUserRepo(d)
	ctx := context.Background()
	u := seedUser(t, d, "alice")

	byName, err := r.GetByIdentifier(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	byEmail, err := r.GetByIdentifier(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	require.NoError(t, r.TouchLastLogin(ctx, u.ID, time.Now().UTC()))
	got, err := r.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLogin)
}

func TestUserRepo_DeleteCascades(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, d, "alice")
	other := seedUser(t, d, "bob")

	require.NoError(t, NewQuickNoteRepo(d).Create(ctx, &model.QuickNote{UserID: u.ID, Content: "note"}))
	require.NoError(t, NewQuickNoteRepo(d).Create(ctx, &model.QuickNote{UserID: other.ID, Content: "keep"}))
	_, err := NewPomodoroRepo(d).GetOrCreateSettings(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, NewPomodoroRepo(d).CreateSession(ctx, &model.PomodoroSession{UserID: u.ID, StartTime: time.Now().UTC(), DurationMinutes: 25}))
	_, err = NewGamificationRepo(d).Award(ctx, u.ID, func(p *model.GamificationProfile) { p.Points += 10 })
	require.NoError(t, err)
	telos := NewTelosRepo(d)
	require.NoError(t, telos.UpsertFramework(ctx, &model.TelosFramework{UserID: u.ID, Content: datatypes.JSONMap{"mission": "x"}}))
	require.NoError(t, telos.UpsertReview(ctx, &model.TelosReview{UserID: u.ID, ReviewDate: "2025-01-01", Content: datatypes.JSONMap{"a": 1}}))
	p := seedProject(t, d, u, "Work")
	require.NoError(t, NewProjectRepo(d).CreateTask(ctx, &model.Task{ProjectID: p.ID, Title: "t"}))

	require.NoError(t, NewUserRepo(d).Delete(ctx, u.ID))

	counts := map[string]any{
		"quick_notes":           &model.QuickNote{},
		"pomodoro_settings":     &model.PomodoroSettings{},
		"pomodoro_sessions":     &model.PomodoroSession{},
		"gamification_profiles": &model.GamificationProfile{},
		"telos_frameworks":      &model.TelosFramework{},
		"telos_reviews":         &model.TelosReview{},
		"projects":              &model.Project{},
		"tasks":                 &model.Task{},
	}
	for name, m := range counts {
		var n int64
		require.NoError(t, d.Model(m).Where("1 = 1").Count(&n).Error)
		if name == "quick_notes" {
			assert.Equal(t, int64(1), n, name)
			continue
		}
		assert.Equal(t, int64(0), n, name)
	}
}
