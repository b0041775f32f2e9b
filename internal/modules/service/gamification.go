package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	PointsTaskCompleted   = 10
	PointsPomodoroSession = 5

	leaderboardSize = 10
)

type Level struct {
	Level  int    `json:"level"`
	Points int    `json:"points"`
	Name   string `json:"name"`
}

// Levels is ordered by ascending threshold.
var Levels = []Level{
	{1, 0, "Beginner"},
	{2, 100, "Apprentice"},
	{3, 500, "Practitioner"},
	{4, 1000, "Skilled"},
	{5, 2000, "Specialist"},
	{6, 4000, "Master"},
	{7, 7000, "Guru"},
	{8, 10000, "Legend"},
}

// LevelFor returns the highest level whose threshold points satisfies.
func LevelFor(points int) Level {
	for i := len(Levels) - 1; i >= 0; i-- {
		if points >= Levels[i].Points {
			return Levels[i]
		}
	}
	return Levels[0]
}

// nextLevel returns the level after l, or false at the top.
func nextLevel(l Level) (Level, bool) {
	for _, candidate := range Levels {
		if candidate.Level == l.Level+1 {
			return candidate, true
		}
	}
	return Level{}, false
}

type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Progress struct {
	Level                  int    `json:"level"`
	LevelName              string `json:"levelName"`
	TotalPoints            int    `json:"totalPoints"`
	ProgressInLevel        int    `json:"progressInLevel"`
	Experience             int    `json:"experience"`
	NextLevelXP            int    `json:"nextLevelXP"`
	Achievements           int    `json:"achievements"`
	CurrentStreak          int    `json:"currentStreak"`
	LongestStreak          int    `json:"longestStreak"`
	TasksCompletedToday    int64  `json:"tasksCompletedToday"`
	SessionsCompletedToday int64  `json:"sessionsCompletedToday"`
}

type GamificationOverview struct {
	Progress     Progress                `json:"progress"`
	Achievements []Achievement           `json:"achievements"`
	Leaderboard  []repo.LeaderboardEntry `json:"leaderboard"`
}

type GamificationService interface {
	// Award adds points, advances the streak and recomputes the level.
	Award(ctx context.Context, userID uuid.UUID, points int, reason string) (*model.GamificationProfile, error)
	Overview(ctx context.Context, user *model.User) (*GamificationOverview, error)
	Reset(ctx context.Context, userID uuid.UUID) error
	Export(ctx context.Context, userID uuid.UUID) (map[string]any, error)
}

type gamificationService struct {
	r        repo.GamificationRepo
	pomodoro repo.PomodoroRepo
	log      *zap.Logger
	now      func() time.Time
}

func NewGamificationService(r repo.GamificationRepo, pomodoro repo.PomodoroRepo, log *zap.Logger) GamificationService {
	return &gamificationService{r: r, pomodoro: pomodoro, log: log, now: time.Now}
}

func (s *gamificationService) Award(ctx context.Context, userID uuid.UUID, points int, reason string) (*model.GamificationProfile, error) {
	today := truncateDay(s.now())
	p, err := s.r.Award(ctx, userID, func(p *model.GamificationProfile) {
		p.Points += points
		if p.Points < 0 {
			p.Points = 0
		}
		advanceStreak(p, today)
		p.Level = LevelFor(p.Points).Level
	})
	if err != nil {
		return nil, fmt.Errorf("award points: %w", err)
	}
	s.log.Debug("points awarded",
		zap.String("user_id", userID.String()),
		zap.Int("points", points),
		zap.String("reason", reason),
		zap.Int("total", p.Points),
	)
	return p, nil
}

// advanceStreak counts consecutive active days ending at today.
func advanceStreak(p *model.GamificationProfile, today time.Time) {
	switch {
	case p.LastActiveDate == nil:
		p.CurrentStreak = 1
	case truncateDay(*p.LastActiveDate).Equal(today):
		if p.CurrentStreak == 0 {
			p.CurrentStreak = 1
		}
	case truncateDay(*p.LastActiveDate).AddDate(0, 0, 1).Equal(today):
		p.CurrentStreak++
	default:
		p.CurrentStreak = 1
	}
	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	p.LastActiveDate = &today
}

func (s *gamificationService) Overview(ctx context.Context, user *model.User) (*GamificationOverview, error) {
	p, err := s.r.Get(ctx, user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p = &model.GamificationProfile{UserID: user.ID, Level: 1}
	} else if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	today := truncateDay(s.now())
	tasksToday, err := s.r.CountCompletedTasksSince(ctx, user.ID, today)
	if err != nil {
		return nil, err
	}
	sessionsToday, err := s.pomodoro.CountSessionsSince(ctx, user.ID, today)
	if err != nil {
		return nil, err
	}

	board, err := s.r.Leaderboard(ctx, user.TenantID, leaderboardSize)
	if err != nil {
		return nil, err
	}
	if board == nil {
		board = []repo.LeaderboardEntry{}
	}

	achievements := achievementsFor(p)
	return &GamificationOverview{
		Progress:     progressFor(p, len(achievements), tasksToday, sessionsToday),
		Achievements: achievements,
		Leaderboard:  board,
	}, nil
}

func progressFor(p *model.GamificationProfile, achievements int, tasksToday, sessionsToday int64) Progress {
	lvl := LevelFor(p.Points)
	next, ok := nextLevel(lvl)

	progress, nextXP := 100, p.Points
	if ok {
		nextXP = next.Points
		progress = (p.Points - lvl.Points) * 100 / (next.Points - lvl.Points)
	}

	return Progress{
		Level:                  lvl.Level,
		LevelName:              lvl.Name,
		TotalPoints:            p.Points,
		ProgressInLevel:        min(progress, 100),
		Experience:             p.Points,
		NextLevelXP:            nextXP,
		Achievements:           achievements,
		CurrentStreak:          p.CurrentStreak,
		LongestStreak:          p.LongestStreak,
		TasksCompletedToday:    tasksToday,
		SessionsCompletedToday: sessionsToday,
	}
}

func achievementsFor(p *model.GamificationProfile) []Achievement {
	out := []Achievement{}
	if p.Points > 0 {
		out = append(out, Achievement{ID: "first-steps", Name: "First Steps", Description: "Earned your first points"})
	}
	if p.LongestStreak >= 3 {
		out = append(out, Achievement{ID: "on-a-roll", Name: "On a Roll", Description: "Three active days in a row"})
	}
	if p.LongestStreak >= 7 {
		out = append(out, Achievement{ID: "week-warrior", Name: "Week Warrior", Description: "Seven active days in a row"})
	}
	for _, l := range Levels[1:] {
		if p.Points >= l.Points {
			out = append(out, Achievement{
				ID:          fmt.Sprintf("level-%d", l.Level),
				Name:        l.Name,
				Description: fmt.Sprintf("Reached level %d", l.Level),
			})
		}
	}
	return out
}

func (s *gamificationService) Reset(ctx context.Context, userID uuid.UUID) error {
	p, err := s.r.Get(ctx, userID)
	if err != nil {
		return orNotFound(err, "gamification profile not found")
	}
	p.Points = 0
	p.Level = 1
	return s.r.Save(ctx, p)
}

func (s *gamificationService) Export(ctx context.Context, userID uuid.UUID) (map[string]any, error) {
	p, err := s.r.Get(ctx, userID)
	if err != nil {
		return nil, orNotFound(err, "gamification profile not found")
	}
	return map[string]any{
		"progress": map[string]any{
			"level":  p.Level,
			"points": p.Points,
		},
	}, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
