package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"gorm.io/gorm"
)

type CollaborationRepo interface {
	CreateCollaborator(ctx context.Context, c *model.ProjectCollaborator, n *model.Notification) error
	GetCollaborator(ctx context.Context, id uuid.UUID) (*model.ProjectCollaborator, error)
	FindCollaborator(ctx context.Context, projectID, userID uuid.UUID) (*model.ProjectCollaborator, error)
	ListCollaborators(ctx context.Context, projectID uuid.UUID) ([]model.ProjectCollaborator, error)
	ListPendingInvitations(ctx context.Context, userID uuid.UUID) ([]model.ProjectCollaborator, error)
	AcceptCollaborator(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteCollaborator(ctx context.Context, id uuid.UUID) error

	CreateComment(ctx context.Context, c *model.Comment) error
	GetComment(ctx context.Context, id uuid.UUID) (*model.Comment, error)
	// ListComments returns top-level comments of a task with their replies.
	ListComments(ctx context.Context, projectID, taskID uuid.UUID) ([]model.Comment, error)
	UpdateComment(ctx context.Context, c *model.Comment) error
	DeleteComment(ctx context.Context, id uuid.UUID) error

	CreateActivity(ctx context.Context, a *model.ActivityLog) error
	ListActivityWithCursor(ctx context.Context, projectID uuid.UUID, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]model.ActivityLog, error)

	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id uuid.UUID, at time.Time) error

	CreateSharedLink(ctx context.Context, l *model.SharedLink) error
	// TouchSharedLink loads a link by token and records one access.
	TouchSharedLink(ctx context.Context, token string, at time.Time) (*model.SharedLink, error)
}

type collaborationRepo struct{ db *gorm.DB }

func NewCollaborationRepo(db *gorm.DB) CollaborationRepo {
	return &collaborationRepo{db: db}
}

func (r *collaborationRepo) CreateCollaborator(ctx context.Context, c *model.ProjectCollaborator, n *model.Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		if n == nil {
			return nil
		}
		return tx.Create(n).Error
	})
}

func (r *collaborationRepo) GetCollaborator(ctx context.Context, id uuid.UUID) (*model.ProjectCollaborator, error) {
	var c model.ProjectCollaborator
	err := r.db.WithContext(ctx).Preload("Project").Where(&model.ProjectCollaborator{ID: id}).First(&c).Error
	return &c, err
}

func (r *collaborationRepo) FindCollaborator(ctx context.Context, projectID, userID uuid.UUID) (*model.ProjectCollaborator, error) {
	var c model.ProjectCollaborator
	err := r.db.WithContext(ctx).Where("project_id = ? AND user_id = ?", projectID, userID).First(&c).Error
	return &c, err
}

func (r *collaborationRepo) ListCollaborators(ctx context.Context, projectID uuid.UUID) ([]model.ProjectCollaborator, error) {
	var items []model.ProjectCollaborator
	return items, r.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&items).Error
}

func (r *collaborationRepo) ListPendingInvitations(ctx context.Context, userID uuid.UUID) ([]model.ProjectCollaborator, error) {
	var items []model.ProjectCollaborator
	return items, r.db.WithContext(ctx).
		Preload("Project").
		Where("user_id = ? AND status = ?", userID, model.CollaboratorPending).
		Order("created_at DESC").
		Find(&items).Error
}

func (r *collaborationRepo) AcceptCollaborator(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.ProjectCollaborator{ID: id}).Updates(map[string]any{
		"status":      model.CollaboratorAccepted,
		"accepted_at": at,
	}).Error
}

func (r *collaborationRepo) DeleteCollaborator(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ProjectCollaborator{ID: id}).Error
}

func (r *collaborationRepo) CreateComment(ctx context.Context, c *model.Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *collaborationRepo) GetComment(ctx context.Context, id uuid.UUID) (*model.Comment, error) {
	var c model.Comment
	err := r.db.WithContext(ctx).Where(&model.Comment{ID: id}).First(&c).Error
	return &c, err
}

func (r *collaborationRepo) ListComments(ctx context.Context, projectID, taskID uuid.UUID) ([]model.Comment, error) {
	var items []model.Comment
	return items, r.db.WithContext(ctx).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Replies.User").
		Where("project_id = ? AND task_id = ? AND parent_comment_id IS NULL", projectID, taskID).
		Order("created_at ASC").
		Find(&items).Error
}

func (r *collaborationRepo) UpdateComment(ctx context.Context, c *model.Comment) error {
	return r.db.WithContext(ctx).Model(&model.Comment{ID: c.ID}).Updates(map[string]any{
		"content":   c.Content,
		"is_edited": true,
	}).Error
}

func (r *collaborationRepo) DeleteComment(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Comment{ID: id}).Error
}

func (r *collaborationRepo) CreateActivity(ctx context.Context, a *model.ActivityLog) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *collaborationRepo) ListActivityWithCursor(ctx context.Context, projectID uuid.UUID, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]model.ActivityLog, error) {
	q := r.db.WithContext(ctx).Preload("User").Where("project_id = ?", projectID)

	// (created_at, id) < (afterCreatedAt, afterID); an empty cursor starts from the latest
	if !afterCreatedAt.IsZero() && afterID != uuid.Nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", afterCreatedAt, afterCreatedAt, afterID)
	}

	var items []model.ActivityLog
	return items, q.Order("created_at DESC, id DESC").Limit(limit).Find(&items).Error
}

func (r *collaborationRepo) CreateNotification(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *collaborationRepo) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]model.Notification, error) {
	var items []model.Notification
	return items, r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_read ASC, created_at DESC").
		Limit(limit).
		Find(&items).Error
}

func (r *collaborationRepo) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *collaborationRepo) CreateSharedLink(ctx context.Context, l *model.SharedLink) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *collaborationRepo) TouchSharedLink(ctx context.Context, token string, at time.Time) (*model.SharedLink, error) {
	var l model.SharedLink
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token = ?", token).First(&l).Error; err != nil {
			return err
		}
		if !l.Usable(at) {
			return nil
		}
		l.AccessCount++
		l.LastAccessed = &at
		return tx.Model(&model.SharedLink{ID: l.ID}).Updates(map[string]any{
			"access_count":  gorm.Expr("access_count + 1"),
			"last_accessed": at,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}
