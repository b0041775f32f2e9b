package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"gorm.io/gorm"
)

// ErrNoTargetProject means the user owns no project a note could become a task in.
var ErrNoTargetProject = errors.New("no project to convert into")

const InboxProjectName = "Inbox"

type QuickNoteRepo interface {
	Create(ctx context.Context, n *model.QuickNote) error
	Get(ctx context.Context, userID, id uuid.UUID) (*model.QuickNote, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.QuickNote, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// ConvertToTask moves a note into the user's Inbox project, or their
	// first owned project, and removes the note.
	ConvertToTask(ctx context.Context, userID, id uuid.UUID) (*model.Task, error)
}

type quickNoteRepo struct{ db *gorm.DB }

func NewQuickNoteRepo(db *gorm.DB) QuickNoteRepo {
	return &quickNoteRepo{db: db}
}

func (r *quickNoteRepo) Create(ctx context.Context, n *model.QuickNote) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *quickNoteRepo) Get(ctx context.Context, userID, id uuid.UUID) (*model.QuickNote, error) {
	var n model.QuickNote
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	return &n, err
}

func (r *quickNoteRepo) List(ctx context.Context, userID uuid.UUID) ([]model.QuickNote, error) {
	var items []model.QuickNote
	return items, r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&items).Error
}

func (r *quickNoteRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.QuickNote{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *quickNoteRepo) ConvertToTask(ctx context.Context, userID, id uuid.UUID) (*model.Task, error) {
	var task *model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var note model.QuickNote
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&note).Error; err != nil {
			return err
		}

		var project model.Project
		err := tx.Where("owner_id = ? AND name = ?", userID, InboxProjectName).First(&project).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = tx.Where("owner_id = ?", userID).Order("created_at ASC").First(&project).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoTargetProject
		}
		if err != nil {
			return err
		}

		uid := userID
		task = &model.Task{
			ProjectID:   project.ID,
			CreatedBy:   &uid,
			Title:       noteTitle(note.Content),
			Description: note.Content,
			Status:      model.TaskStatusPending,
			Category:    note.Category,
			Priority:    model.PriorityMedium,
			Tags:        note.Tags,
		}
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		return tx.Delete(&note).Error
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func noteTitle(content string) string {
	const max = 100
	r := []rune(content)
	if len(r) <= max {
		return content
	}
	return string(r[:max-3]) + "..."
}
