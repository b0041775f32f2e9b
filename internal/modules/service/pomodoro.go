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

type PomodoroStats struct {
	SessionsCompletedToday int64 `json:"sessionsCompletedToday"`
}

type PomodoroState struct {
	Settings model.PomodoroSettings `json:"settings"`
	Stats    PomodoroStats          `json:"stats"`
}

// PomodoroSettingsInput carries optional updates; nil fields are kept.
type PomodoroSettingsInput struct {
	WorkDuration           *int `json:"workDuration"`
	ShortBreakDuration     *int `json:"shortBreakDuration"`
	LongBreakDuration      *int `json:"longBreakDuration"`
	SessionsUntilLongBreak *int `json:"sessionsUntilLongBreak"`
}

type PomodoroService interface {
	Get(ctx context.Context, userID uuid.UUID) (*PomodoroState, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, in PomodoroSettingsInput) (*model.PomodoroSettings, error)
	LogSession(ctx context.Context, userID uuid.UUID) (*model.PomodoroSession, error)
}

type pomodoroService struct {
	r     repo.PomodoroRepo
	gamif GamificationService
	log   *zap.Logger
	now   func() time.Time
}

func NewPomodoroService(r repo.PomodoroRepo, gamif GamificationService, log *zap.Logger) PomodoroService {
	return &pomodoroService{r: r, gamif: gamif, log: log, now: time.Now}
}

func (s *pomodoroService) Get(ctx context.Context, userID uuid.UUID) (*PomodoroState, error) {
	settings, err := s.r.GetOrCreateSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	n, err := s.r.CountSessionsSince(ctx, userID, truncateDay(s.now()))
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	return &PomodoroState{
		Settings: *settings,
		Stats:    PomodoroStats{SessionsCompletedToday: n},
	}, nil
}

func (s *pomodoroService) UpdateSettings(ctx context.Context, userID uuid.UUID, in PomodoroSettingsInput) (*model.PomodoroSettings, error) {
	for _, v := range []*int{in.WorkDuration, in.ShortBreakDuration, in.LongBreakDuration, in.SessionsUntilLongBreak} {
		if v != nil && *v <= 0 {
			return nil, invalid("durations must be positive")
		}
	}

	settings, err := s.r.GetOrCreateSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if in.WorkDuration != nil {
		settings.FocusDuration = *in.WorkDuration
	}
	if in.ShortBreakDuration != nil {
		settings.ShortBreakDuration = *in.ShortBreakDuration
	}
	if in.LongBreakDuration != nil {
		settings.LongBreakDuration = *in.LongBreakDuration
	}
	if in.SessionsUntilLongBreak != nil {
		settings.SessionsUntilLongBreak = *in.SessionsUntilLongBreak
	}

	if err := s.r.SaveSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	return settings, nil
}

func (s *pomodoroService) LogSession(ctx context.Context, userID uuid.UUID) (*model.PomodoroSession, error) {
	duration := model.DefaultFocusMinutes
	settings, err := s.r.FindSettings(ctx, userID)
	switch {
	case err == nil:
		duration = settings.FocusDuration
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("load settings: %w", err)
	}

	session := &model.PomodoroSession{
		UserID:          userID,
		StartTime:       s.now().UTC(),
		DurationMinutes: duration,
	}
	if err := s.r.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if _, err := s.gamif.Award(ctx, userID, PointsPomodoroSession, "pomodoro_session"); err != nil {
		s.log.Warn("award pomodoro points", zap.String("user_id", userID.String()), zap.Error(err))
	}
	return session, nil
}
