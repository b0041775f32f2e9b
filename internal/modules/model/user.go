package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string     `gorm:"type:varchar(80);uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"type:varchar(120);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	TenantID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// User <-> Tenant
	Tenant *Tenant `gorm:"foreignKey:TenantID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"tenant,omitempty"`

	// User <-> Project (owner)
	OwnedProjects []Project `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	QuickNotes          []QuickNote          `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	PomodoroSettings    *PomodoroSettings    `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	PomodoroSessions    []PomodoroSession    `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	GamificationProfile *GamificationProfile `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	Integration         *Integration         `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	CloudSyncs          []CloudSync          `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	StudyVideos         []StudyVideo         `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	TelosFramework      *TelosFramework      `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	TelosReviews        []TelosReview        `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	Notifications       []Notification       `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error { ensureID(&u.ID); return nil }
