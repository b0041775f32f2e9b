package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/repo"
)

type CreateQuickNoteInput struct {
	Content  string
	Category string
	Tags     []string
}

type QuickNoteService interface {
	List(ctx context.Context, userID uuid.UUID) ([]model.QuickNote, error)
	Create(ctx context.Context, userID uuid.UUID, in CreateQuickNoteInput) (*model.QuickNote, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	ConvertToTask(ctx context.Context, userID, id uuid.UUID) (*model.Task, error)
}

type quickNoteService struct {
	r repo.QuickNoteRepo
}

func NewQuickNoteService(r repo.QuickNoteRepo) QuickNoteService {
	return &quickNoteService{r: r}
}

func (s *quickNoteService) List(ctx context.Context, userID uuid.UUID) ([]model.QuickNote, error) {
	items, err := s.r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.QuickNote{}
	}
	return items, nil
}

func (s *quickNoteService) Create(ctx context.Context, userID uuid.UUID, in CreateQuickNoteInput) (*model.QuickNote, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, invalid("content is required")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "general"
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	n := &model.QuickNote{
		UserID:   userID,
		Content:  content,
		Category: category,
		Tags:     tags,
	}
	if err := s.r.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

func (s *quickNoteService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.r.Delete(ctx, userID, id); err != nil {
		return orNotFound(err, "note not found")
	}
	return nil
}

func (s *quickNoteService) ConvertToTask(ctx context.Context, userID, id uuid.UUID) (*model.Task, error) {
	task, err := s.r.ConvertToTask(ctx, userID, id)
	if errors.Is(err, repo.ErrNoTargetProject) {
		return nil, notFound("no project available for the task")
	}
	if err != nil {
		return nil, orNotFound(err, "note not found")
	}
	return task, nil
}
