package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StudyVideoRepo interface {
	Create(ctx context.Context, v *model.StudyVideo) error
	Get(ctx context.Context, userID, id uuid.UUID) (*model.StudyVideo, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.StudyVideo, error)
	Update(ctx context.Context, v *model.StudyVideo) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type studyVideoRepo struct{ db *gorm.DB }

func NewStudyVideoRepo(db *gorm.DB) StudyVideoRepo {
	return &studyVideoRepo{db: db}
}

func (r *studyVideoRepo) Create(ctx context.Context, v *model.StudyVideo) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *studyVideoRepo) Get(ctx context.Context, userID, id uuid.UUID) (*model.StudyVideo, error) {
	var v model.StudyVideo
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&v).Error
	return &v, err
}

func (r *studyVideoRepo) List(ctx context.Context, userID uuid.UUID) ([]model.StudyVideo, error) {
	var items []model.StudyVideo
	return items, r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&items).Error
}

func (r *studyVideoRepo) Update(ctx context.Context, v *model.StudyVideo) error {
	return r.db.WithContext(ctx).Model(&model.StudyVideo{ID: v.ID}).Updates(map[string]any{
		"video_url": v.VideoURL,
		"title":     v.Title,
		"notes":     v.Notes,
		"status":    v.Status,
	}).Error
}

func (r *studyVideoRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.StudyVideo{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type TelosRepo interface {
	GetFramework(ctx context.Context, userID uuid.UUID) (*model.TelosFramework, error)
	UpsertFramework(ctx context.Context, f *model.TelosFramework) error
	ListReviews(ctx context.Context, userID uuid.UUID, limit int) ([]model.TelosReview, error)
	// UpsertReview keeps one review per (user, review_date).
	UpsertReview(ctx context.Context, rv *model.TelosReview) error
}

type telosRepo struct{ db *gorm.DB }

func NewTelosRepo(db *gorm.DB) TelosRepo {
	return &telosRepo{db: db}
}

func (r *telosRepo) GetFramework(ctx context.Context, userID uuid.UUID) (*model.TelosFramework, error) {
	var f model.TelosFramework
	err := r.db.WithContext(ctx).Where(&model.TelosFramework{UserID: userID}).First(&f).Error
	return &f, err
}

// UpsertFramework keeps a single framework row per user; f is reloaded
// with the persisted row.
func (r *telosRepo) UpsertFramework(ctx context.Context, f *model.TelosFramework) error {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(f).Error
	if err != nil {
		return err
	}
	var saved model.TelosFramework
	if err := db.Where("user_id = ?", f.UserID).First(&saved).Error; err != nil {
		return err
	}
	*f = saved
	return nil
}

func (r *telosRepo) ListReviews(ctx context.Context, userID uuid.UUID, limit int) ([]model.TelosReview, error) {
	var items []model.TelosReview
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("review_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return items, q.Find(&items).Error
}

// UpsertReview keeps one review per user and date.
func (r *telosRepo) UpsertReview(ctx context.Context, rv *model.TelosReview) error {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "review_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(rv).Error
	if err != nil {
		return err
	}
	var saved model.TelosReview
	if err := db.Where("user_id = ? AND review_date = ?", rv.UserID, rv.ReviewDate).First(&saved).Error; err != nil {
		return err
	}
	*rv = saved
	return nil
}
