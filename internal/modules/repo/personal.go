package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PomodoroRepo interface {
	// GetOrCreateSettings returns the user's settings, storing the defaults on first read.
	GetOrCreateSettings(ctx context.Context, userID uuid.UUID) (*model.PomodoroSettings, error)
	FindSettings(ctx context.Context, userID uuid.UUID) (*model.PomodoroSettings, error)
	SaveSettings(ctx context.Context, s *model.PomodoroSettings) error
	CreateSession(ctx context.Context, s *model.PomodoroSession) error
	CountSessionsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
}

type pomodoroRepo struct{ db *gorm.DB }

func NewPomodoroRepo(db *gorm.DB) PomodoroRepo {
	return &pomodoroRepo{db: db}
}

func (r *pomodoroRepo) GetOrCreateSettings(ctx context.Context, userID uuid.UUID) (*model.PomodoroSettings, error) {
	s := model.DefaultPomodoroSettings(userID)
	err := r.db.WithContext(ctx).Where(&model.PomodoroSettings{UserID: userID}).FirstOrCreate(&s).Error
	return &s, err
}

func (r *pomodoroRepo) FindSettings(ctx context.Context, userID uuid.UUID) (*model.PomodoroSettings, error) {
	var s model.PomodoroSettings
	err := r.db.WithContext(ctx).Where(&model.PomodoroSettings{UserID: userID}).First(&s).Error
	return &s, err
}

func (r *pomodoroRepo) SaveSettings(ctx context.Context, s *model.PomodoroSettings) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *pomodoroRepo) CreateSession(ctx context.Context, s *model.PomodoroSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *pomodoroRepo) CountSessionsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.PomodoroSession{}).
		Where("user_id = ? AND start_time >= ?", userID, since).
		Count(&n).Error
	return n, err
}

type LeaderboardEntry struct {
	UserID        uuid.UUID `json:"user_id"`
	Username      string    `json:"username"`
	Points        int       `json:"points"`
	Level         int       `json:"level"`
	CurrentStreak int       `json:"current_streak"`
}

type GamificationRepo interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.GamificationProfile, error)
	// Award applies fn to the user's profile under a row lock, creating the profile if missing.
	Award(ctx context.Context, userID uuid.UUID, fn func(p *model.GamificationProfile)) (*model.GamificationProfile, error)
	Save(ctx context.Context, p *model.GamificationProfile) error
	Leaderboard(ctx context.Context, tenantID uuid.UUID, limit int) ([]LeaderboardEntry, error)
	CountCompletedTasksSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
}

type gamificationRepo struct{ db *gorm.DB }

func NewGamificationRepo(db *gorm.DB) GamificationRepo {
	return &gamificationRepo{db: db}
}

func (r *gamificationRepo) Get(ctx context.Context, userID uuid.UUID) (*model.GamificationProfile, error) {
	var p model.GamificationProfile
	err := r.db.WithContext(ctx).Where(&model.GamificationProfile{UserID: userID}).First(&p).Error
	return &p, err
}

func (r *gamificationRepo) Award(ctx context.Context, userID uuid.UUID, fn func(p *model.GamificationProfile)) (*model.GamificationProfile, error) {
	var p model.GamificationProfile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		err := q.Where(&model.GamificationProfile{UserID: userID}).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p = model.GamificationProfile{UserID: userID, Level: 1}
			fn(&p)
			return tx.Create(&p).Error
		}
		if err != nil {
			return err
		}
		fn(&p)
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gamificationRepo) Save(ctx context.Context, p *model.GamificationProfile) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *gamificationRepo) Leaderboard(ctx context.Context, tenantID uuid.UUID, limit int) ([]LeaderboardEntry, error) {
	var items []LeaderboardEntry
	return items, r.db.WithContext(ctx).Model(&model.GamificationProfile{}).
		Select("gamification_profiles.user_id, users.username, gamification_profiles.points, gamification_profiles.level, gamification_profiles.current_streak").
		Joins("JOIN users ON users.id = gamification_profiles.user_id").
		Where("users.tenant_id = ?", tenantID).
		Order("gamification_profiles.points DESC, users.username ASC").
		Limit(limit).
		Scan(&items).Error
}

func (r *gamificationRepo) CountCompletedTasksSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Joins("JOIN projects ON projects.id = tasks.project_id").
		Where("projects.owner_id = ? AND tasks.status = ? AND tasks.completed_at >= ?", userID, model.TaskStatusCompleted, since).
		Count(&n).Error
	return n, err
}
