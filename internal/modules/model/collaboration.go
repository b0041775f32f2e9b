package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CollaboratorPending  = "pending"
	CollaboratorAccepted = "accepted"

	RoleMember = "member"
	RoleOwner  = "owner"
)

type ProjectCollaborator struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_project_user" json:"project_id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_project_user;index" json:"user_id"`
	Role       string     `gorm:"type:varchar(20);not null;default:member" json:"role"`
	Status     string     `gorm:"type:varchar(20);not null;default:pending" json:"status"`
	InvitedBy  *uuid.UUID `gorm:"type:uuid" json:"invited_by,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"invited_at"`

	// ProjectCollaborator <-> User
	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"user,omitempty"`

	// ProjectCollaborator <-> Project
	Project *Project `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"project,omitempty"`
}

func (ProjectCollaborator) TableName() string { return "project_collaborators" }

func (c *ProjectCollaborator) BeforeCreate(*gorm.DB) error { ensureID(&c.ID); return nil }

type Comment struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"project_id"`
	TaskID          *uuid.UUID        `gorm:"type:uuid;index" json:"task_id,omitempty"`
	UserID          uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Content         string            `gorm:"type:text;not null" json:"content"`
	ParentCommentID *uuid.UUID        `gorm:"type:uuid;index" json:"parent_comment_id,omitempty"`
	IsEdited        bool              `gorm:"not null;default:false" json:"is_edited"`
	ExtraData       datatypes.JSONMap `gorm:"type:jsonb" swaggertype:"object" json:"extra_data,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Comment <-> User
	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"user,omitempty"`

	// Comment <-> Comment
	Replies []Comment `gorm:"foreignKey:ParentCommentID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"replies,omitempty"`
}

func (Comment) TableName() string { return "comments" }

func (c *Comment) BeforeCreate(*gorm.DB) error { ensureID(&c.ID); return nil }

type ActivityLog struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID         `gorm:"type:uuid;not null;index:idx_activity_project_created,priority:1" json:"project_id"`
	UserID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Action      string            `gorm:"type:varchar(50);not null" json:"action"`
	EntityType  string            `gorm:"type:varchar(50);not null" json:"entity_type"`
	EntityID    *uuid.UUID        `gorm:"type:uuid" json:"entity_id,omitempty"`
	Description string            `gorm:"type:text" json:"description"`
	ExtraData   datatypes.JSONMap `gorm:"type:jsonb" swaggertype:"object" json:"extra_data,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_activity_project_created,priority:2" json:"created_at"`

	// ActivityLog <-> User
	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"user,omitempty"`
}

func (ActivityLog) TableName() string { return "activity_logs" }

func (a *ActivityLog) BeforeCreate(*gorm.DB) error { ensureID(&a.ID); return nil }

type Notification struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	ProjectID *uuid.UUID        `gorm:"type:uuid;index" json:"project_id,omitempty"`
	Title     string            `gorm:"type:varchar(200);not null" json:"title"`
	Message   string            `gorm:"type:text;not null" json:"message"`
	Type      string            `gorm:"type:varchar(50);not null;default:info" json:"type"`
	IsRead    bool              `gorm:"not null;default:false" json:"is_read"`
	ActionURL string            `gorm:"type:varchar(500)" json:"action_url,omitempty"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	ExtraData datatypes.JSONMap `gorm:"type:jsonb" swaggertype:"object" json:"extra_data,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Notification <-> Project
	Project *Project `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) BeforeCreate(*gorm.DB) error { ensureID(&n.ID); return nil }

type SharedLink struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	CreatedBy    uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`
	Token        string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"token"`
	Permissions  string     `gorm:"type:varchar(20);not null;default:view" json:"permissions"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	AccessCount  int        `gorm:"not null;default:0" json:"access_count"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (SharedLink) TableName() string { return "shared_links" }

func (s *SharedLink) BeforeCreate(*gorm.DB) error { ensureID(&s.ID); return nil }

// Usable reports whether the link may still be followed at now.
func (s *SharedLink) Usable(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}
