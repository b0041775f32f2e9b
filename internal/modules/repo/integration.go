package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"gorm.io/gorm"
)

type IntegrationRepo interface {
	// Get returns the user's integration row, or an empty one when none is stored.
	Get(ctx context.Context, userID uuid.UUID) (*model.Integration, error)
	Save(ctx context.Context, i *model.Integration) error
}

type integrationRepo struct{ db *gorm.DB }

func NewIntegrationRepo(db *gorm.DB) IntegrationRepo {
	return &integrationRepo{db: db}
}

func (r *integrationRepo) Get(ctx context.Context, userID uuid.UUID) (*model.Integration, error) {
	var i model.Integration
	err := r.db.WithContext(ctx).Where(&model.Integration{UserID: userID}).First(&i).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.Integration{UserID: userID}, nil
	}
	return &i, err
}

func (r *integrationRepo) Save(ctx context.Context, i *model.Integration) error {
	if i.ID == uuid.Nil {
		return r.db.WithContext(ctx).Create(i).Error
	}
	return r.db.WithContext(ctx).Model(&model.Integration{ID: i.ID}).Update("configs", i.Configs).Error
}

type CloudSyncRepo interface {
	// Upsert stores a connection keyed by (user, provider).
	Upsert(ctx context.Context, c *model.CloudSync) error
	Get(ctx context.Context, userID uuid.UUID, provider string) (*model.CloudSync, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.CloudSync, error)
	Update(ctx context.Context, c *model.CloudSync) error
	Delete(ctx context.Context, userID uuid.UUID, provider string) error
	// ListEnabled returns every connection with sync enabled, across users.
	ListEnabled(ctx context.Context) ([]model.CloudSync, error)
}

type cloudSyncRepo struct{ db *gorm.DB }

func NewCloudSyncRepo(db *gorm.DB) CloudSyncRepo {
	return &cloudSyncRepo{db: db}
}

func (r *cloudSyncRepo) Upsert(ctx context.Context, c *model.CloudSync) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.CloudSync
		err := tx.Where("user_id = ? AND provider = ?", c.UserID, c.Provider).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(c).Error
		}
		if err != nil {
			return err
		}
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
		return tx.Model(&existing).Updates(map[string]any{
			"provider_user_id": c.ProviderUserID,
			"access_token":     c.AccessToken,
			"refresh_token":    c.RefreshToken,
			"token_expires_at": c.TokenExpiresAt,
			"sync_enabled":     c.SyncEnabled,
			"sync_settings":    c.SyncSettings,
		}).Error
	})
}

func (r *cloudSyncRepo) Get(ctx context.Context, userID uuid.UUID, provider string) (*model.CloudSync, error) {
	var c model.CloudSync
	err := r.db.WithContext(ctx).Where("user_id = ? AND provider = ?", userID, provider).First(&c).Error
	return &c, err
}

func (r *cloudSyncRepo) List(ctx context.Context, userID uuid.UUID) ([]model.CloudSync, error) {
	var items []model.CloudSync
	return items, r.db.WithContext(ctx).Where("user_id = ?", userID).Order("provider ASC").Find(&items).Error
}

func (r *cloudSyncRepo) Update(ctx context.Context, c *model.CloudSync) error {
	return r.db.WithContext(ctx).Model(&model.CloudSync{ID: c.ID}).Updates(map[string]any{
		"access_token":     c.AccessToken,
		"refresh_token":    c.RefreshToken,
		"token_expires_at": c.TokenExpiresAt,
		"last_sync":        c.LastSync,
		"sync_status":      c.SyncStatus,
		"sync_settings":    c.SyncSettings,
	}).Error
}

func (r *cloudSyncRepo) Delete(ctx context.Context, userID uuid.UUID, provider string) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND provider = ?", userID, provider).Delete(&model.CloudSync{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cloudSyncRepo) ListEnabled(ctx context.Context) ([]model.CloudSync, error) {
	var items []model.CloudSync
	return items, r.db.WithContext(ctx).Where("sync_enabled = ?", true).Find(&items).Error
}
