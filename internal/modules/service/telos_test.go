package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MockTelosRepo is a mock implementation of TelosRepo
type MockTelosRepo struct {
	mock.Mock
}

func (m *MockTelosRepo) GetFramework(ctx context.Context, userID uuid.UUID) (*model.TelosFramework, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TelosFramework), args.Error(1)
}

func (m *MockTelosRepo) UpsertFramework(ctx context.Context, f *model.TelosFramework) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockTelosRepo) ListReviews(ctx context.Context, userID uuid.UUID, limit int) ([]model.TelosReview, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TelosReview), args.Error(1)
}

func (m *MockTelosRepo) UpsertReview(ctx context.Context, rv *model.TelosReview) error {
	args := m.Called(ctx, rv)
	return args.Error(0)
}

func TestTelosService_SaveReview(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name        string
		date        string
		content     map[string]any
		setup       func(r *MockTelosRepo)
		expectedErr error
	}{
		{
			name:    "valid review",
			date:    "2024-02-29",
			content: map[string]any{"wins": "shipped"},
			setup: func(r *MockTelosRepo) {
				r.On("UpsertReview", mock.Anything, mock.MatchedBy(func(rv *model.TelosReview) bool {
					return rv.UserID == userID && rv.ReviewDate == "2024-02-29"
				})).Return(nil)
			},
		},
		{name: "missing date", content: map[string]any{}, setup: func(*MockTelosRepo) {}, expectedErr: ErrInvalidInput},
		{name: "missing content", date: "2024-02-29", setup: func(*MockTelosRepo) {}, expectedErr: ErrInvalidInput},
		{name: "bad date", date: "29/02/2024", content: map[string]any{}, setup: func(*MockTelosRepo) {}, expectedErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &MockTelosRepo{}
			tt.setup(r)
			svc := NewTelosService(r, nil, zap.NewNop())

			rv, err := svc.SaveReview(context.Background(), userID, tt.date, tt.content)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.date, rv.ReviewDate)
			r.AssertExpectations(t)
		})
	}
}

func TestTelosService_GetFramework_Missing(t *testing.T) {
	r := &MockTelosRepo{}
	r.On("GetFramework", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)

	f, err := NewTelosService(r, nil, zap.NewNop()).GetFramework(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestTelosService_Analyze(t *testing.T) {
	userID := uuid.New()
	framework := &model.TelosFramework{UserID: userID, Content: datatypes.JSONMap{"mission": "learn go"}}
	reviews := []model.TelosReview{{ReviewDate: "2024-03-02", Content: datatypes.JSONMap{"note": "skipped gym"}}}

	t.Run("chat includes the question", func(t *testing.T) {
		r := &MockTelosRepo{}
		r.On("GetFramework", mock.Anything, userID).Return(framework, nil)
		r.On("ListReviews", mock.Anything, userID, reviewsForAnalysis).Return(reviews, nil)

		gen := &MockGenerator{name: "gemini", configured: true}
		gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
			return strings.Contains(p, "learn go") &&
				strings.Contains(p, "[2024-03-02]") &&
				strings.Contains(p, "what next?")
		})).Return("Focus on one thing.", nil)

		ai := NewAIService([]TextGenerator{gen}, nil, 0, zap.NewNop())
		res, err := NewTelosService(r, ai, zap.NewNop()).Analyze(context.Background(), userID, "chat", "what next?")
		require.NoError(t, err)
		assert.Equal(t, "Focus on one thing.", res.Result)
		assert.Equal(t, "gemini", res.Provider)
		gen.AssertExpectations(t)
	})

	t.Run("validation", func(t *testing.T) {
		svc := NewTelosService(&MockTelosRepo{}, nil, zap.NewNop())
		_, err := svc.Analyze(context.Background(), userID, "horoscope", "")
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = svc.Analyze(context.Background(), userID, "chat", "  ")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("missing framework", func(t *testing.T) {
		r := &MockTelosRepo{}
		r.On("GetFramework", mock.Anything, userID).Return(nil, gorm.ErrRecordNotFound)
		_, err := NewTelosService(r, nil, zap.NewNop()).Analyze(context.Background(), userID, "summary", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("providers down", func(t *testing.T) {
		r := &MockTelosRepo{}
		r.On("GetFramework", mock.Anything, userID).Return(framework, nil)
		r.On("ListReviews", mock.Anything, userID, reviewsForAnalysis).Return(reviews, nil)
		ai := NewAIService(nil, nil, 0, zap.NewNop())

		_, err := NewTelosService(r, ai, zap.NewNop()).Analyze(context.Background(), userID, "blindspots", "")
		assert.ErrorIs(t, err, ErrUpstream)
	})
}
