package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuickNote struct {
	ID       uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID                   `gorm:"type:uuid;not null;index" json:"user_id"`
	Content  string                      `gorm:"type:text;not null" json:"content"`
	Category string                      `gorm:"type:varchar(50);not null;default:general" json:"category"`
	Tags     datatypes.JSONSlice[string] `gorm:"type:jsonb" swaggertype:"array,string" json:"tags"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (QuickNote) TableName() string { return "quick_notes" }

func (n *QuickNote) BeforeCreate(*gorm.DB) error { ensureID(&n.ID); return nil }

const (
	DefaultFocusMinutes           = 25
	DefaultShortBreakMinutes      = 5
	DefaultLongBreakMinutes       = 15
	DefaultSessionsUntilLongBreak = 4
)

type PomodoroSettings struct {
	ID                     uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	UserID                 uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	FocusDuration          int       `gorm:"not null;default:25" json:"workDuration"`
	ShortBreakDuration     int       `gorm:"not null;default:5" json:"shortBreakDuration"`
	LongBreakDuration      int       `gorm:"not null;default:15" json:"longBreakDuration"`
	SessionsUntilLongBreak int       `gorm:"not null;default:4" json:"sessionsUntilLongBreak"`

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (PomodoroSettings) TableName() string { return "pomodoro_settings" }

func (s *PomodoroSettings) BeforeCreate(*gorm.DB) error { ensureID(&s.ID); return nil }

// DefaultPomodoroSettings returns the settings a user starts with.
func DefaultPomodoroSettings(userID uuid.UUID) PomodoroSettings {
	return PomodoroSettings{
		UserID:                 userID,
		FocusDuration:          DefaultFocusMinutes,
		ShortBreakDuration:     DefaultShortBreakMinutes,
		LongBreakDuration:      DefaultLongBreakMinutes,
		SessionsUntilLongBreak: DefaultSessionsUntilLongBreak,
	}
}

type PomodoroSession struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index:idx_pomodoro_user_start,priority:1" json:"user_id"`
	StartTime       time.Time `gorm:"not null;index:idx_pomodoro_user_start,priority:2" json:"start_time"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
}

func (PomodoroSession) TableName() string { return "pomodoro_sessions" }

func (s *PomodoroSession) BeforeCreate(*gorm.DB) error { ensureID(&s.ID); return nil }

type GamificationProfile struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Points         int        `gorm:"not null;default:0" json:"points"`
	Level          int        `gorm:"not null;default:1" json:"level"`
	CurrentStreak  int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak  int        `gorm:"not null;default:0" json:"longest_streak"`
	LastActiveDate *time.Time `json:"last_active_date,omitempty"`

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// GamificationProfile <-> User
	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"user,omitempty"`
}

func (GamificationProfile) TableName() string { return "gamification_profiles" }

func (g *GamificationProfile) BeforeCreate(*gorm.DB) error { ensureID(&g.ID); return nil }

const (
	VideoToWatch   = "To Watch"
	VideoWatching  = "Watching"
	VideoCompleted = "Completed"
)

type StudyVideo struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	VideoURL string    `gorm:"type:varchar(500);not null" json:"videoUrl"`
	Title    string    `gorm:"type:varchar(255)" json:"title"`
	Notes    string    `gorm:"type:text" json:"notes"`
	Status   string    `gorm:"type:varchar(20);not null;default:'To Watch'" json:"status"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (StudyVideo) TableName() string { return "study_videos" }

func (v *StudyVideo) BeforeCreate(*gorm.DB) error { ensureID(&v.ID); return nil }

func ValidVideoStatus(s string) bool {
	switch s {
	case VideoToWatch, VideoWatching, VideoCompleted:
		return true
	}
	return false
}

type TelosFramework struct {
	ID      uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Content datatypes.JSONMap `gorm:"type:jsonb;not null" swaggertype:"object" json:"content"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TelosFramework) TableName() string { return "telos_frameworks" }

func (f *TelosFramework) BeforeCreate(*gorm.DB) error { ensureID(&f.ID); return nil }

// ReviewDateLayout is the stored form of TelosReview.ReviewDate.
const ReviewDateLayout = "2006-01-02"

type TelosReview struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:ux_telos_user_date" json:"user_id"`
	ReviewDate string            `gorm:"type:varchar(10);not null;uniqueIndex:ux_telos_user_date" json:"review_date"`
	Content    datatypes.JSONMap `gorm:"type:jsonb;not null" swaggertype:"object" json:"content"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TelosReview) TableName() string { return "telos_reviews" }

func (r *TelosReview) BeforeCreate(*gorm.DB) error { ensureID(&r.ID); return nil }
