package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lexflow/lexflow-api/internal/infra/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockGenerator is a mock implementation of TextGenerator
type MockGenerator struct {
	mock.Mock
	name       string
	configured bool
}

func (m *MockGenerator) Name() string     { return m.name }
func (m *MockGenerator) Configured() bool { return m.configured }

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

const suggestionsReply = "```json\n{\"suggestions\":[{\"title\":\"Write tests\",\"priority\":\"high\"}]}\n```"

func TestAIService_Suggest_CacheWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := cache.NewMemoryStore().WithClock(clock.now)

	gemini := &MockGenerator{name: "gemini", configured: true}
	gemini.On("Generate", mock.Anything, mock.Anything).Return(suggestionsReply, nil)

	svc := NewAIService([]TextGenerator{gemini}, store, time.Hour, zap.NewNop())
	ctx := context.Background()
	input := map[string]any{"goals": []string{"ship"}, "current_tasks": []any{}}

	first, err := svc.Suggest(ctx, AITaskSuggestions, input)
	require.NoError(t, err)
	assert.Equal(t, "gemini", first.Source)

	clock.advance(59 * time.Minute)
	second, err := svc.Suggest(ctx, AITaskSuggestions, map[string]any{"current_tasks": []any{}, "goals": []string{"ship"}})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, first.Data, second.Data)
	gemini.AssertNumberOfCalls(t, "Generate", 1)

	clock.advance(2 * time.Minute)
	third, err := svc.Suggest(ctx, AITaskSuggestions, input)
	require.NoError(t, err)
	assert.Equal(t, "gemini", third.Source)
	gemini.AssertNumberOfCalls(t, "Generate", 2)
}

func TestAIService_Suggest_DifferentInputMisses(t *testing.T) {
	store := cache.NewMemoryStore()
	gemini := &MockGenerator{name: "gemini", configured: true}
	gemini.On("Generate", mock.Anything, mock.Anything).Return(suggestionsReply, nil)

	svc := NewAIService([]TextGenerator{gemini}, store, time.Hour, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Suggest(ctx, AITaskSuggestions, map[string]any{"context": "a"})
	require.NoError(t, err)
	_, err = svc.Suggest(ctx, AITaskSuggestions, map[string]any{"context": "b"})
	require.NoError(t, err)
	gemini.AssertNumberOfCalls(t, "Generate", 2)
}

func TestAIService_Suggest_Fallbacks(t *testing.T) {
	tests := []struct {
		name           string
		setup          func(primary, secondary *MockGenerator)
		expectedSource string
	}{
		{
			name: "secondary after primary error",
			setup: func(primary, secondary *MockGenerator) {
				primary.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota"))
				secondary.On("Generate", mock.Anything, mock.Anything).Return(suggestionsReply, nil)
			},
			expectedSource: "openai",
		},
		{
			name: "secondary after unusable primary reply",
			setup: func(primary, secondary *MockGenerator) {
				primary.On("Generate", mock.Anything, mock.Anything).Return("I cannot help with that", nil)
				secondary.On("Generate", mock.Anything, mock.Anything).Return(suggestionsReply, nil)
			},
			expectedSource: "openai",
		},
		{
			name: "canned answer when both fail",
			setup: func(primary, secondary *MockGenerator) {
				primary.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("down"))
				secondary.On("Generate", mock.Anything, mock.Anything).Return(`{"suggestions":[]}`, nil)
			},
			expectedSource: SourceFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &MockGenerator{name: "gemini", configured: true}
			secondary := &MockGenerator{name: "openai", configured: true}
			tt.setup(primary, secondary)

			svc := NewAIService([]TextGenerator{primary, secondary}, cache.NewMemoryStore(), time.Hour, zap.NewNop())
			res, err := svc.Suggest(context.Background(), AITaskSuggestions, map[string]any{"x": 1})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedSource, res.Source)
			assert.NotNil(t, res.Data)
		})
	}
}

func TestAIService_Suggest_FallbackIsNotCached(t *testing.T) {
	store := cache.NewMemoryStore()
	gemini := &MockGenerator{name: "gemini", configured: true}
	gemini.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("down")).Once()
	gemini.On("Generate", mock.Anything, mock.Anything).Return(`{"overall_score":90,"strengths":["focus"]}`, nil).Once()

	svc := NewAIService([]TextGenerator{gemini}, store, time.Hour, zap.NewNop())
	ctx := context.Background()

	res, err := svc.Suggest(ctx, AIProductivityInsights, map[string]any{"daily_stats": map[string]any{}})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)

	res, err = svc.Suggest(ctx, AIProductivityInsights, map[string]any{"daily_stats": map[string]any{}})
	require.NoError(t, err)
	assert.Equal(t, "gemini", res.Source)
	assert.Equal(t, float64(90), res.Data.(map[string]any)["overall_score"])
	gemini.AssertExpectations(t)
}

func TestAIService_Suggest_ScheduleNotCached(t *testing.T) {
	gemini := &MockGenerator{name: "gemini", configured: true}
	gemini.On("Generate", mock.Anything, mock.Anything).Return(`{"optimized_schedule":[],"productivity_score":70}`, nil)

	svc := NewAIService([]TextGenerator{gemini}, cache.NewMemoryStore(), time.Hour, zap.NewNop())
	for i := 0; i < 2; i++ {
		res, err := svc.Suggest(context.Background(), AIScheduleOptimization, map[string]any{"current_schedule": []any{}})
		require.NoError(t, err)
		assert.Equal(t, "gemini", res.Source)
	}
	gemini.AssertNumberOfCalls(t, "Generate", 2)
}

func TestAIService_Suggest_SkipsUnconfigured(t *testing.T) {
	gemini := &MockGenerator{name: "gemini"}
	openai := &MockGenerator{name: "openai", configured: true}
	openai.On("Generate", mock.Anything, mock.Anything).Return(`{"recommendations":[{"title":"Go by example"}]}`, nil)

	svc := NewAIService([]TextGenerator{gemini, openai}, nil, 0, zap.NewNop())
	assert.Equal(t, []string{"openai"}, svc.Providers())

	res, err := svc.Suggest(context.Background(), AIStudyRecommendations, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "openai", res.Source)
	gemini.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestAIService_Suggest_UnknownKind(t *testing.T) {
	svc := NewAIService(nil, nil, 0, zap.NewNop())
	_, err := svc.Suggest(context.Background(), AIKind("horoscope"), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAIService_Complete(t *testing.T) {
	gemini := &MockGenerator{name: "gemini", configured: true}
	gemini.On("Generate", mock.Anything, "hello").Return("", errors.New("down"))

	svc := NewAIService([]TextGenerator{gemini}, nil, 0, zap.NewNop())
	_, _, err := svc.Complete(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUpstream)

	openai := &MockGenerator{name: "openai", configured: true}
	openai.On("Generate", mock.Anything, "hello").Return("## Summary", nil)
	svc = NewAIService([]TextGenerator{gemini, openai}, nil, 0, zap.NewNop())
	text, provider, err := svc.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "## Summary", text)
	assert.Equal(t, "openai", provider)
}

func TestAIService_ClearCacheAndHealth(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "ai:task-suggestions:abc", []byte("[]"), time.Hour))
	require.NoError(t, store.Set(ctx, "ai:study-recommendations:def", []byte("[]"), time.Hour))
	require.NoError(t, store.Set(ctx, "auth:revoked:jti", []byte("1"), time.Hour))

	svc := NewAIService(nil, store, time.Hour, zap.NewNop())

	h, err := svc.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, 2, h.CachedEntries)
	assert.Equal(t, 3600, h.CacheTTLSecond)

	n, err := svc.ClearCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, hit, _ := store.Get(ctx, "auth:revoked:jti")
	assert.True(t, hit)
}

func TestExtractPayload(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		path  string
		ok    bool
		want  string
	}{
		{"fenced array", suggestionsReply, "suggestions", true, `[{"title":"Write tests","priority":"high"}]`},
		{"bare object", `{"overall_score":1}`, "", true, `{"overall_score":1}`},
		{"empty object", `{}`, "", false, ""},
		{"missing path", `{"other":[1]}`, "suggestions", false, ""},
		{"not json", "sure, here you go", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractPayload(tt.reply, tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.JSONEq(t, tt.want, got)
			}
		})
	}
}

func intPtr(v int) *int { return &v }

func TestAIService_ScorePriorities(t *testing.T) {
	svc := NewAIService(nil, nil, 0, zap.NewNop())

	tasks := []ScoreTask{
		{ID: "a", Priority: "low", EstimatedTime: intPtr(200)},
		{ID: "b", Priority: "high", DueDate: "2024-05-01", EstimatedTime: intPtr(10), Category: "Work"},
		{ID: "c"},
	}
	scored := svc.ScorePriorities(tasks, []string{"work"})
	require.Len(t, scored, 3)

	assert.Equal(t, "b", scored[0].ID)
	assert.Equal(t, 100, scored[0].PriorityScore)
	assert.True(t, scored[0].Factors.CategoryMatch)

	assert.Equal(t, "c", scored[1].ID)
	assert.Equal(t, 50, scored[1].PriorityScore)
	assert.Equal(t, 60, scored[1].Factors.Effort)
	assert.Equal(t, "medium", scored[1].Factors.Importance)

	assert.Equal(t, "a", scored[2].ID)
	assert.Equal(t, 25, scored[2].PriorityScore)
}

func TestAIService_Summarize(t *testing.T) {
	svc := NewAIService(nil, nil, 0, zap.NewNop())

	short, err := svc.Summarize("Short note.", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "Short note.", short.Summary)
	assert.Equal(t, "general", short.Type)
	assert.Equal(t, 1.0, short.CompressionRatio)

	long := "First point here. Second point follows. Third point is filler. Fourth point is filler too. Final point wraps up."
	res, err := svc.Summarize(long, "study", 20)
	require.NoError(t, err)
	assert.Equal(t, "First point here. Second point follows. Final point wraps up.", res.Summary)
	assert.Less(t, res.CompressionRatio, 1.0)

	_, err = svc.Summarize("   ", "", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAIService_Categorize(t *testing.T) {
	svc := NewAIService(nil, nil, 0, zap.NewNop())
	out := svc.Categorize([]CategorizeItem{
		{ID: 1, Title: "Fix login bug"},
		{ID: 2, Text: "Read the Go book"},
		{ID: 3, Title: "Client meeting"},
		{ID: 4, Title: "Gym session"},
		{ID: 5, Title: "Misc"},
	})
	got := make([]string, 0, len(out))
	for _, o := range out {
		got = append(got, o.SuggestedCategory)
	}
	assert.Equal(t, []string{"technical", "study", "work", "personal", "general"}, got)
	assert.Equal(t, 0.5, out[4].Confidence)
}
