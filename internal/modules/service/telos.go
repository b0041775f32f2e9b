package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// reviewsForAnalysis bounds how many recent reviews are sent to the model.
const reviewsForAnalysis = 30

var telosPatterns = map[string]string{
	"summary": `You are a productivity coach. Given the user's personal constitution (TELOS framework) and their daily reflections, write a concise Markdown report with the sections: ## Period Summary, ## Main Obstacle, ## Biggest Progress, ## Actionable Suggestion.`,
	"red_team": `You are a blunt critical-thinking red teamer. Compare the user's TELOS framework with their daily reflections and point out 4 to 5 clear inconsistencies between what they SAY they want and what they DO. Be direct and challenging.`,
	"blindspots": `You are a behavioural data analyst. Read the daily reflections in light of the TELOS framework and identify 4 to 5 hidden patterns, contradictions or correlations the user is probably not seeing. Answer as a Markdown list.`,
	"encouragement": `You are a motivational coach. Read the user's daily reflections and TELOS framework and write 3 to 4 specific paragraphs of encouragement that acknowledge their struggles and celebrate their progress toward their missions.`,
	"chat": `You are a productivity coach talking to the user. Use the TELOS framework and the daily reflections as CONTEXT to answer the user's QUESTION, linking daily actions to long term goals.`,
}

type TelosAnalysis struct {
	Pattern  string `json:"pattern"`
	Result   string `json:"result"`
	Provider string `json:"provider"`
}

type TelosService interface {
	// GetFramework returns nil without error when the user has none yet.
	GetFramework(ctx context.Context, userID uuid.UUID) (*model.TelosFramework, error)
	SaveFramework(ctx context.Context, userID uuid.UUID, content map[string]any) (*model.TelosFramework, error)
	ListReviews(ctx context.Context, userID uuid.UUID) ([]model.TelosReview, error)
	SaveReview(ctx context.Context, userID uuid.UUID, reviewDate string, content map[string]any) (*model.TelosReview, error)
	Analyze(ctx context.Context, userID uuid.UUID, pattern, question string) (*TelosAnalysis, error)
}

type telosService struct {
	r   repo.TelosRepo
	ai  AIService
	log *zap.Logger
}

func NewTelosService(r repo.TelosRepo, ai AIService, log *zap.Logger) TelosService {
	return &telosService{r: r, ai: ai, log: log}
}

func (s *telosService) GetFramework(ctx context.Context, userID uuid.UUID) (*model.TelosFramework, error) {
	f, err := s.r.GetFramework(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load framework: %w", err)
	}
	return f, nil
}

func (s *telosService) SaveFramework(ctx context.Context, userID uuid.UUID, content map[string]any) (*model.TelosFramework, error) {
	if content == nil {
		return nil, invalid("content is required")
	}
	f := &model.TelosFramework{UserID: userID, Content: content}
	if err := s.r.UpsertFramework(ctx, f); err != nil {
		return nil, fmt.Errorf("save framework: %w", err)
	}
	return f, nil
}

func (s *telosService) ListReviews(ctx context.Context, userID uuid.UUID) ([]model.TelosReview, error) {
	items, err := s.r.ListReviews(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.TelosReview{}
	}
	return items, nil
}

func (s *telosService) SaveReview(ctx context.Context, userID uuid.UUID, reviewDate string, content map[string]any) (*model.TelosReview, error) {
	reviewDate = strings.TrimSpace(reviewDate)
	if reviewDate == "" || content == nil {
		return nil, invalid("review_date and content are required")
	}
	if _, err := time.Parse(model.ReviewDateLayout, reviewDate); err != nil {
		return nil, invalid("review_date must be YYYY-MM-DD")
	}

	rv := &model.TelosReview{UserID: userID, ReviewDate: reviewDate, Content: content}
	if err := s.r.UpsertReview(ctx, rv); err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}
	return rv, nil
}

func (s *telosService) Analyze(ctx context.Context, userID uuid.UUID, pattern, question string) (*TelosAnalysis, error) {
	instruction, ok := telosPatterns[pattern]
	if !ok {
		return nil, invalid("unknown pattern")
	}
	question = strings.TrimSpace(question)
	if pattern == "chat" && question == "" {
		return nil, invalid("question is required for chat")
	}

	f, err := s.r.GetFramework(ctx, userID)
	if err != nil {
		return nil, orNotFound(err, "telos framework not found")
	}
	reviews, err := s.r.ListReviews(ctx, userID, reviewsForAnalysis)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}

	framework, err := sonic.MarshalString(f.Content)
	if err != nil {
		return nil, err
	}
	var daily strings.Builder
	for _, rv := range reviews {
		entry, err := sonic.MarshalString(rv.Content)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&daily, "[%s] %s\n", rv.ReviewDate, entry)
	}

	var prompt strings.Builder
	prompt.WriteString(instruction)
	prompt.WriteString("\n\n--- PERSONAL CONSTITUTION (TELOS FRAMEWORK) ---\n")
	prompt.WriteString(framework)
	prompt.WriteString("\n\n--- DAILY REFLECTIONS ---\n")
	prompt.WriteString(daily.String())
	if pattern == "chat" {
		prompt.WriteString("\n--- USER QUESTION ---\n")
		prompt.WriteString(question)
	}

	text, provider, err := s.ai.Complete(ctx, prompt.String())
	if err != nil {
		return nil, err
	}
	s.log.Debug("telos analysis", zap.String("user_id", userID.String()), zap.String("pattern", pattern), zap.String("provider", provider))
	return &TelosAnalysis{Pattern: pattern, Result: text, Provider: provider}, nil
}
