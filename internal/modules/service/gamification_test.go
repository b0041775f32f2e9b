package service

import (
	"context"
	"testing"
	"time"

	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		points int
		level  int
		name   string
	}{
		{0, 1, "Beginner"},
		{99, 1, "Beginner"},
		{100, 2, "Apprentice"},
		{999, 3, "Practitioner"},
		{2000, 5, "Specialist"},
		{10000, 8, "Legend"},
		{250000, 8, "Legend"},
	}
	for _, tt := range tests {
		l := LevelFor(tt.points)
		assert.Equal(t, tt.level, l.Level, "points=%d", tt.points)
		assert.Equal(t, tt.name, l.Name, "points=%d", tt.points)
	}
}

func TestAdvanceStreak(t *testing.T) {
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	lastWeek := today.AddDate(0, 0, -7)

	tests := []struct {
		name        string
		last        *time.Time
		current     int
		longest     int
		wantCurrent int
		wantLongest int
	}{
		{name: "first activity", wantCurrent: 1, wantLongest: 1},
		{name: "same day keeps streak", last: &today, current: 4, longest: 6, wantCurrent: 4, wantLongest: 6},
		{name: "consecutive day extends", last: &yesterday, current: 6, longest: 6, wantCurrent: 7, wantLongest: 7},
		{name: "gap resets", last: &lastWeek, current: 5, longest: 9, wantCurrent: 1, wantLongest: 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &model.GamificationProfile{LastActiveDate: tt.last, CurrentStreak: tt.current, LongestStreak: tt.longest}
			advanceStreak(p, today)
			assert.Equal(t, tt.wantCurrent, p.CurrentStreak)
			assert.Equal(t, tt.wantLongest, p.LongestStreak)
			require.NotNil(t, p.LastActiveDate)
			assert.True(t, p.LastActiveDate.Equal(today))
		})
	}
}

func TestProgressFor(t *testing.T) {
	p := progressFor(&model.GamificationProfile{Points: 300}, 2, 1, 3)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 500, p.NextLevelXP)
	assert.Equal(t, 50, p.ProgressInLevel)
	assert.Equal(t, int64(1), p.TasksCompletedToday)
	assert.Equal(t, int64(3), p.SessionsCompletedToday)

	top := progressFor(&model.GamificationProfile{Points: 12000}, 0, 0, 0)
	assert.Equal(t, 8, top.Level)
	assert.Equal(t, 100, top.ProgressInLevel)
	assert.Equal(t, 12000, top.NextLevelXP)
}

func TestAchievementsFor(t *testing.T) {
	assert.Empty(t, achievementsFor(&model.GamificationProfile{}))

	ids := func(list []Achievement) []string {
		out := make([]string, 0, len(list))
		for _, a := range list {
			out = append(out, a.ID)
		}
		return out
	}
	got := ids(achievementsFor(&model.GamificationProfile{Points: 600, LongestStreak: 7}))
	assert.Equal(t, []string{"first-steps", "on-a-roll", "week-warrior", "level-2", "level-3"}, got)
}

func TestGamificationService_AwardAndOverview(t *testing.T) {
	d := newTestDB(t)
	alice := seedOwner(t, d, "alice")
	bob := seedTeammate(t, d, alice, "bob")
	outsider := seedOwner(t, d, "mallory")

	svc := NewGamificationService(repo.NewGamificationRepo(d), repo.NewPomodoroRepo(d), zap.NewNop()).(*gamificationService)
	day := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day }
	ctx := context.Background()

	p, err := svc.Award(ctx, alice.ID, 95, "seed")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 1, p.CurrentStreak)

	day = day.AddDate(0, 0, 1)
	p, err = svc.Award(ctx, alice.ID, PointsTaskCompleted, "task_completed")
	require.NoError(t, err)
	assert.Equal(t, 105, p.Points)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 2, p.CurrentStreak)

	_, err = svc.Award(ctx, bob.ID, PointsPomodoroSession, "pomodoro_session")
	require.NoError(t, err)
	_, err = svc.Award(ctx, outsider.ID, 5000, "seed")
	require.NoError(t, err)

	// negative awards never push points below zero
	p, err = svc.Award(ctx, bob.ID, -50, "correction")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Points)

	ov, err := svc.Overview(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 105, ov.Progress.TotalPoints)
	assert.Equal(t, "Apprentice", ov.Progress.LevelName)
	assert.Equal(t, 2, ov.Progress.CurrentStreak)
	require.Len(t, ov.Leaderboard, 2)
	assert.Equal(t, "alice", ov.Leaderboard[0].Username)
	assert.Equal(t, "bob", ov.Leaderboard[1].Username)
}

func TestGamificationService_OverviewWithoutProfile(t *testing.T) {
	d := newTestDB(t)
	alice := seedOwner(t, d, "alice")
	svc := NewGamificationService(repo.NewGamificationRepo(d), repo.NewPomodoroRepo(d), zap.NewNop())

	ov, err := svc.Overview(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 1, ov.Progress.Level)
	assert.Equal(t, 0, ov.Progress.TotalPoints)
	assert.NotNil(t, ov.Leaderboard)
	assert.Empty(t, ov.Achievements)
}

func TestGamificationService_ResetAndExport(t *testing.T) {
	d := newTestDB(t)
	alice := seedOwner(t, d, "alice")
	svc := NewGamificationService(repo.NewGamificationRepo(d), repo.NewPomodoroRepo(d), zap.NewNop())
	ctx := context.Background()

	assert.ErrorIs(t, svc.Reset(ctx, alice.ID), ErrNotFound)
	_, err := svc.Export(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Award(ctx, alice.ID, 1200, "seed")
	require.NoError(t, err)

	out, err := svc.Export(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"level": 4, "points": 1200}, out["progress"])

	require.NoError(t, svc.Reset(ctx, alice.ID))
	out, err = svc.Export(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"level": 1, "points": 0}, out["progress"])
}
