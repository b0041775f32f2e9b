package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/repo"
)

type StudyVideoInput struct {
	VideoURL *string `json:"videoUrl"`
	Title    *string `json:"title"`
	Notes    *string `json:"notes"`
	Status   *string `json:"status"`
}

type StudyVideoService interface {
	List(ctx context.Context, userID uuid.UUID) ([]model.StudyVideo, error)
	Create(ctx context.Context, userID uuid.UUID, in StudyVideoInput) (*model.StudyVideo, error)
	Update(ctx context.Context, userID, id uuid.UUID, in StudyVideoInput) (*model.StudyVideo, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type studyVideoService struct {
	r repo.StudyVideoRepo
}

func NewStudyVideoService(r repo.StudyVideoRepo) StudyVideoService {
	return &studyVideoService{r: r}
}

func (s *studyVideoService) List(ctx context.Context, userID uuid.UUID) ([]model.StudyVideo, error) {
	items, err := s.r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.StudyVideo{}
	}
	return items, nil
}

func (s *studyVideoService) Create(ctx context.Context, userID uuid.UUID, in StudyVideoInput) (*model.StudyVideo, error) {
	if in.VideoURL == nil || strings.TrimSpace(*in.VideoURL) == "" {
		return nil, invalid("videoUrl is required")
	}
	v := &model.StudyVideo{
		UserID:   userID,
		VideoURL: strings.TrimSpace(*in.VideoURL),
		Status:   model.VideoToWatch,
	}
	if err := applyVideoInput(v, in); err != nil {
		return nil, err
	}
	if err := s.r.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}
	return v, nil
}

func (s *studyVideoService) Update(ctx context.Context, userID, id uuid.UUID, in StudyVideoInput) (*model.StudyVideo, error) {
	v, err := s.r.Get(ctx, userID, id)
	if err != nil {
		return nil, orNotFound(err, "video not found")
	}
	if in.VideoURL != nil && strings.TrimSpace(*in.VideoURL) == "" {
		return nil, invalid("videoUrl cannot be empty")
	}
	if err := applyVideoInput(v, in); err != nil {
		return nil, err
	}
	if err := s.r.Update(ctx, v); err != nil {
		return nil, fmt.Errorf("update video: %w", err)
	}
	return v, nil
}

func applyVideoInput(v *model.StudyVideo, in StudyVideoInput) error {
	if in.Status != nil {
		if !model.ValidVideoStatus(*in.Status) {
			return invalid("status must be one of To Watch, Watching, Completed")
		}
		v.Status = *in.Status
	}
	if in.VideoURL != nil {
		v.VideoURL = strings.TrimSpace(*in.VideoURL)
	}
	if in.Title != nil {
		v.Title = *in.Title
	}
	if in.Notes != nil {
		v.Notes = *in.Notes
	}
	return nil
}

func (s *studyVideoService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.r.Delete(ctx, userID, id); err != nil {
		return orNotFound(err, "video not found")
	}
	return nil
}
