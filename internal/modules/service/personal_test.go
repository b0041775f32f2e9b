package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr[T any](v T) *T { return &v }

func TestQuickNoteService_CreateAndList(t *testing.T) {
	d := newTestDB(t)
	alice := seedOwner(t, d, "alice")
	bob := seedOwner(t, d, "bob")
	svc := NewQuickNoteService(repo.NewQuickNoteRepo(d))
	ctx := context.Background()

	_, err := svc.Create(ctx, alice.ID, CreateQuickNoteInput{Content: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	n, err := svc.Create(ctx, alice.ID, CreateQuickNoteInput{Content: " read tort cases "})
	require.NoError(t, err)
	assert.Equal(t, "read tort cases", n.Content)
	assert.Equal(t, "general", n.Category)
	assert.NotNil(t, n.Tags)

	list, err := svc.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	empty, err := svc.List(ctx, bob.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	// notes are private to their owner
	assert.ErrorIs(t, svc.Delete(ctx, bob.ID, n.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, alice.ID, n.ID))
	assert.ErrorIs(t, svc.Delete(ctx, alice.ID, n.ID), ErrNotFound)
}

func TestQuickNoteService_ConvertToTask(t *testing.T) {
	d := newTestDB(t)
	alice := seedOwner(t, d, "alice")
	svc := NewQuickNoteService(repo.NewQuickNoteRepo(d))
	ctx := context.Background()

	long := strings.Repeat("a", 150)
	n, err := svc.Create(ctx, alice.ID, CreateQuickNoteInput{Content: long, Category: "study", Tags: []string{"exam"}})
	require.NoError(t, err)

	_, err = svc.ConvertToTask(ctx, alice.ID, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	first := &model.Project{Name: "Contracts", OwnerID: alice.ID, TenantID: alice.TenantID}
	require.NoError(t, d.Create(first).Error)
	inbox := &model.Project{Name: repo.InboxProjectName, OwnerID: alice.ID, TenantID: alice.TenantID}
	require.NoError(t, d.Create(inbox).Error)

	task, err := svc.ConvertToTask(ctx, alice.ID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, inbox.ID, task.ProjectID)
	assert.Len(t, []rune(task.Title), 100)
	assert.True(t, strings.HasSuffix(task.Title, "..."))
	assert.Equal(t, long, task.Description)
	assert.Equal(t, "study", task.Category)
	assert.Equal(t, model.TaskStatusPending, task.Status)

	list, err := svc.List(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.ConvertToTask(ctx, alice.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPomodoroService(t *testing.T) {
	d := newTestDB(t)
	alice := seedOwner(t, d, "alice")
	gamif := NewGamificationService(repo.NewGamificationRepo(d), repo.NewPomodoroRepo(d), zap.NewNop())
	svc := NewPomodoroService(repo.NewPomodoroRepo(d), gamif, zap.NewNop())
	ctx := context.Background()

	// logging before any settings exist uses the default focus length
	session, err := svc.LogSession(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultFocusMinutes, session.DurationMinutes)

	state, err := svc.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultFocusMinutes, state.Settings.FocusDuration)
	assert.Equal(t, model.DefaultSessionsUntilLongBreak, state.Settings.SessionsUntilLongBreak)
	assert.Equal(t, int64(1), state.Stats.SessionsCompletedToday)

	_, err = svc.UpdateSettings(ctx, alice.ID, PomodoroSettingsInput{WorkDuration: ptr(0)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	settings, err := svc.UpdateSettings(ctx, alice.ID, PomodoroSettingsInput{WorkDuration: ptr(50), LongBreakDuration: ptr(30)})
	require.NoError(t, err)
	assert.Equal(t, 50, settings.FocusDuration)
	assert.Equal(t, 30, settings.LongBreakDuration)
	assert.Equal(t, model.DefaultShortBreakMinutes, settings.ShortBreakDuration)

	session, err = svc.LogSession(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, session.DurationMinutes)

	ov, err := gamif.Overview(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2*PointsPomodoroSession, ov.Progress.TotalPoints)
	assert.Equal(t, int64(2), ov.Progress.SessionsCompletedToday)
}

func TestStudyVideoService(t *testing.T) {
	d := newTestDB(t)
	alice := seedOwner(t, d, "alice")
	bob := seedOwner(t, d, "bob")
	svc := NewStudyVideoService(repo.NewStudyVideoRepo(d))
	ctx := context.Background()

	tests := []struct {
		name        string
		in          StudyVideoInput
		expectedErr error
	}{
		{name: "missing url", in: StudyVideoInput{Title: ptr("Evidence")}, expectedErr: ErrInvalidInput},
		{name: "blank url", in: StudyVideoInput{VideoURL: ptr("  ")}, expectedErr: ErrInvalidInput},
		{name: "bad status", in: StudyVideoInput{VideoURL: ptr("https://youtu.be/x"), Status: ptr("Paused")}, expectedErr: ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, alice.ID, tt.in)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}

	v, err := svc.Create(ctx, alice.ID, StudyVideoInput{VideoURL: ptr(" https://youtu.be/abc "), Title: ptr("Evidence 101")})
	require.NoError(t, err)
	assert.Equal(t, "https://youtu.be/abc", v.VideoURL)
	assert.Equal(t, model.VideoToWatch, v.Status)

	_, err = svc.Update(ctx, bob.ID, v.ID, StudyVideoInput{Status: ptr(model.VideoWatching)})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(ctx, alice.ID, v.ID, StudyVideoInput{VideoURL: ptr("")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	v, err = svc.Update(ctx, alice.ID, v.ID, StudyVideoInput{Status: ptr(model.VideoCompleted), Notes: ptr("hearsay exceptions")})
	require.NoError(t, err)
	assert.Equal(t, model.VideoCompleted, v.Status)
	assert.Equal(t, "Evidence 101", v.Title)

	list, err := svc.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "hearsay exceptions", list[0].Notes)

	assert.ErrorIs(t, svc.Delete(ctx, bob.ID, v.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, alice.ID, v.ID))
	list, err = svc.List(ctx, bob.ID)
	require.NoError(t, err)
	assert.NotNil(t, list)
}
