package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Integration holds one user's third-party service configuration. Configs
// has the shape {"credentials": {...}, "syncTargets": {...}}; credential
// values are sealed before they are stored.
type Integration struct {
	ID      uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Configs datatypes.JSONMap `gorm:"type:jsonb" swaggertype:"object" json:"configs"`

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Integration) TableName() string { return "integrations" }

func (i *Integration) BeforeCreate(*gorm.DB) error { ensureID(&i.ID); return nil }

const (
	ProviderGoogleDrive = "google_drive"
	ProviderDropbox     = "dropbox"
	ProviderOneDrive    = "onedrive"

	SyncIdle      = "idle"
	SyncSyncing   = "syncing"
	SyncCompleted = "completed"
	SyncError     = "error"
)

type CloudSync struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:ux_cloud_user_provider" json:"user_id"`
	Provider       string            `gorm:"type:varchar(50);not null;uniqueIndex:ux_cloud_user_provider" json:"provider"`
	ProviderUserID string            `gorm:"type:varchar(255)" json:"provider_user_id,omitempty"`
	AccessToken    string            `gorm:"type:text" json:"-"`
	RefreshToken   string            `gorm:"type:text" json:"-"`
	TokenExpiresAt *time.Time        `json:"token_expires_at,omitempty"`
	SyncEnabled    bool              `gorm:"not null;default:true" json:"sync_enabled"`
	LastSync       *time.Time        `json:"last_sync,omitempty"`
	SyncStatus     string            `gorm:"type:varchar(20);not null;default:idle" json:"sync_status"`
	SyncSettings   datatypes.JSONMap `gorm:"type:jsonb" swaggertype:"object" json:"sync_settings"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CloudSync) TableName() string { return "cloud_syncs" }

func (c *CloudSync) BeforeCreate(*gorm.DB) error { ensureID(&c.ID); return nil }

// Expired reports whether the access token needs a refresh at now.
func (c *CloudSync) Expired(now time.Time) bool {
	return c.TokenExpiresAt != nil && !now.Before(*c.TokenExpiresAt)
}

// AutoSync reports whether the daily job should sync this connection.
func (c *CloudSync) AutoSync() bool {
	if !c.SyncEnabled || c.SyncSettings == nil {
		return false
	}
	v, ok := c.SyncSettings["auto_sync"].(bool)
	return ok && v
}
