package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const FreePlanName = "Free"

type Plan struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"name"`
	Price        float64   `gorm:"not null;default:0" json:"price"`
	ProjectLimit int       `gorm:"not null;default:3" json:"project_limit"`
	UserLimit    int       `gorm:"not null;default:1" json:"user_limit"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Plan) TableName() string { return "plans" }

func (p *Plan) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }

type Tenant struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"type:varchar(255);not null" json:"name"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Tenant <-> User
	Users []User `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Tenant <-> Project
	Projects []Project `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Tenant <-> Subscription
	Subscription *Subscription `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"subscription,omitempty"`
}

func (Tenant) TableName() string { return "tenants" }

func (t *Tenant) BeforeCreate(*gorm.DB) error { ensureID(&t.ID); return nil }

type Subscription struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID             uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"tenant_id"`
	PlanID               uuid.UUID  `gorm:"type:uuid;not null;index" json:"plan_id"`
	StripeSubscriptionID *string    `gorm:"type:varchar(255)" json:"stripe_subscription_id,omitempty"`
	Status               string     `gorm:"type:varchar(32);not null;default:active" json:"status"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Subscription <-> Plan
	Plan *Plan `gorm:"foreignKey:PlanID;references:ID;constraint:OnDelete:RESTRICT,OnUpdate:CASCADE;" json:"plan,omitempty"`
}

func (Subscription) TableName() string { return "subscriptions" }

func (s *Subscription) BeforeCreate(*gorm.DB) error { ensureID(&s.ID); return nil }
