package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Task struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID                   `gorm:"type:uuid;not null;index" json:"project_id"`
	CreatedBy   *uuid.UUID                  `gorm:"type:uuid;index" json:"created_by,omitempty"`
	AssignedTo  *uuid.UUID                  `gorm:"type:uuid;index" json:"assigned_to,omitempty"`
	Title       string                      `gorm:"type:varchar(200);not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	Status      string                      `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	Category    string                      `gorm:"type:varchar(50);not null;default:general" json:"category"`
	Priority    string                      `gorm:"type:varchar(20);not null;default:medium" json:"priority"`
	DueDate     *time.Time                  `json:"due_date,omitempty"`
	Tags        datatypes.JSONSlice[string] `gorm:"type:jsonb" swaggertype:"array,string" json:"tags"`
	CompletedAt *time.Time                  `gorm:"index" json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Task <-> Comment
	Comments []Comment `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Task) TableName() string { return "tasks" }

func (t *Task) BeforeCreate(*gorm.DB) error { ensureID(&t.ID); return nil }

// SetStatus keeps CompletedAt in step with the status.
func (t *Task) SetStatus(status string, now time.Time) {
	if status == TaskStatusCompleted && t.Status != TaskStatusCompleted {
		t.CompletedAt = &now
	}
	if status != TaskStatusCompleted {
		t.CompletedAt = nil
	}
	t.Status = status
}

func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
