package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lexflow/lexflow-api/internal/infra/cache"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// TextGenerator is a generative model provider.
type TextGenerator interface {
	Name() string
	Configured() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

type AIKind string

const (
	AITaskSuggestions      AIKind = "task-suggestions"
	AIProductivityInsights AIKind = "productivity-insights"
	AIStudyRecommendations AIKind = "study-recommendations"
	AIScheduleOptimization AIKind = "schedule-optimization"

	aiCachePrefix = "ai:"
)

// Sources reported with an AI result.
const (
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

type aiKindSpec struct {
	instruction string
	// path selects the payload inside the model reply; empty keeps the whole document.
	path     string
	cached   bool
	fallback func() any
}

var aiKinds = map[AIKind]aiKindSpec{
	AITaskSuggestions: {
		instruction: `Based on the user context below, suggest 5 specific and actionable tasks.
Reply ONLY with valid JSON in the form:
{"suggestions":[{"title":"","description":"","priority":"high|medium|low","category":"technical|study|personal","estimated_time":"minutes","reasoning":""}]}`,
		path:     "suggestions",
		cached:   true,
		fallback: fallbackTaskSuggestions,
	},
	AIProductivityInsights: {
		instruction: `Analyse the productivity data below and give actionable insights.
Reply ONLY with valid JSON in the form:
{"overall_score":85,"strengths":[""],"areas_for_improvement":[""],"recommendations":[{"title":"","description":"","impact":"high|medium|low","effort":"easy|medium|hard"}],"trends":{"productivity_trend":"rising|stable|falling","focus_pattern":"morning|afternoon|evening","best_day":""}}`,
		cached:   true,
		fallback: fallbackProductivityInsights,
	},
	AIStudyRecommendations: {
		instruction: `Based on the study history below, recommend relevant content.
Reply ONLY with valid JSON in the form:
{"recommendations":[{"title":"","type":"video|article|course|book","description":"","difficulty":"beginner|intermediate|advanced","estimated_time":"","relevance_score":95,"topics":[""],"url":null}]}`,
		path:     "recommendations",
		cached:   true,
		fallback: fallbackStudyRecommendations,
	},
	AIScheduleOptimization: {
		instruction: `Optimise the schedule below using the productivity patterns it contains.
Reply ONLY with valid JSON in the form:
{"optimized_schedule":[{"time_slot":"09:00-10:00","activity":"","reasoning":"","energy_level":"high|medium|low"}],"improvements":[""],"productivity_score":88}`,
		fallback: fallbackScheduleOptimization,
	},
}

// AIResult is a provider, cached or canned answer.
type AIResult struct {
	Kind   AIKind `json:"kind"`
	Data   any    `json:"data"`
	Source string `json:"source"`
}

type AIHealth struct {
	Status         string   `json:"status"`
	Providers      []string `json:"providers"`
	CachedEntries  int      `json:"cached_entries"`
	CacheTTLSecond int      `json:"cache_ttl_seconds"`
}

type CategorizeItem struct {
	ID    any    `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

type CategorizedItem struct {
	ID                any            `json:"id"`
	Original          CategorizeItem `json:"original"`
	SuggestedCategory string         `json:"suggested_category"`
	Confidence        float64        `json:"confidence"`
	Reasoning         string         `json:"reasoning"`
}

type Summary struct {
	Summary          string  `json:"summary"`
	OriginalLength   int     `json:"original_length"`
	SummaryLength    int     `json:"summary_length"`
	CompressionRatio float64 `json:"compression_ratio"`
	Type             string  `json:"type"`
}

type ScoreTask struct {
	ID            any    `json:"id"`
	Title         string `json:"title"`
	DueDate       string `json:"due_date"`
	Priority      string `json:"priority"`
	EstimatedTime *int   `json:"estimated_time"`
	Category      string `json:"category"`
}

type ScoreFactors struct {
	Urgency       bool   `json:"urgency"`
	Importance    string `json:"importance"`
	Effort        int    `json:"effort"`
	CategoryMatch bool   `json:"category_match"`
}

type ScoredTask struct {
	ID            any          `json:"id"`
	Task          ScoreTask    `json:"task"`
	PriorityScore int          `json:"priority_score"`
	Factors       ScoreFactors `json:"factors"`
}

type AIService interface {
	Providers() []string
	// Suggest answers kind from the configured providers, the cache or the canned fallback.
	Suggest(ctx context.Context, kind AIKind, input map[string]any) (*AIResult, error)
	// Complete runs a free-form prompt through the providers without caching.
	Complete(ctx context.Context, prompt string) (string, string, error)
	ClearCache(ctx context.Context) (int, error)
	Health(ctx context.Context) (*AIHealth, error)
	Categorize(items []CategorizeItem) []CategorizedItem
	Summarize(content, kind string, maxLength int) (*Summary, error)
	ScorePriorities(tasks []ScoreTask, priorityCategories []string) []ScoredTask
}

type aiService struct {
	providers []TextGenerator
	cache     cache.Store
	ttl       time.Duration
	log       *zap.Logger
}

// NewAIService tries providers in order; the first one is the primary.
func NewAIService(providers []TextGenerator, store cache.Store, ttl time.Duration, log *zap.Logger) AIService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &aiService{providers: providers, cache: store, ttl: ttl, log: log}
}

func (s *aiService) Providers() []string {
	out := []string{}
	for _, p := range s.providers {
		if p.Configured() {
			out = append(out, p.Name())
		}
	}
	return out
}

func (s *aiService) Suggest(ctx context.Context, kind AIKind, input map[string]any) (*AIResult, error) {
	spec, ok := aiKinds[kind]
	if !ok {
		return nil, invalid("unknown suggestion type")
	}

	serialized, err := sonic.ConfigStd.Marshal(input)
	if err != nil {
		return nil, invalid("context is not serializable")
	}

	key := cacheKey(kind, serialized)
	if spec.cached && s.cache != nil {
		raw, hit, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn("ai cache get", zap.String("kind", string(kind)), zap.Error(err))
		}
		if hit {
			var data any
			if err := sonic.Unmarshal(raw, &data); err == nil {
				return &AIResult{Kind: kind, Data: data, Source: SourceCache}, nil
			}
		}
	}

	prompt := spec.instruction + "\n\nContext:\n" + string(serialized)
	for _, p := range s.providers {
		if !p.Configured() {
			continue
		}
		reply, err := p.Generate(ctx, prompt)
		if err != nil {
			s.log.Warn("ai provider failed", zap.String("provider", p.Name()), zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		payload, ok := extractPayload(reply, spec.path)
		if !ok {
			s.log.Warn("ai provider returned unusable payload", zap.String("provider", p.Name()), zap.String("kind", string(kind)))
			continue
		}

		var data any
		if err := sonic.UnmarshalString(payload, &data); err != nil {
			continue
		}
		if spec.cached && s.cache != nil {
			if err := s.cache.Set(ctx, key, []byte(payload), s.ttl); err != nil {
				s.log.Warn("ai cache set", zap.String("kind", string(kind)), zap.Error(err))
			}
		}
		return &AIResult{Kind: kind, Data: data, Source: p.Name()}, nil
	}

	return &AIResult{Kind: kind, Data: spec.fallback(), Source: SourceFallback}, nil
}

func (s *aiService) Complete(ctx context.Context, prompt string) (string, string, error) {
	for _, p := range s.providers {
		if !p.Configured() {
			continue
		}
		reply, err := p.Generate(ctx, prompt)
		if err != nil {
			s.log.Warn("ai provider failed", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		if strings.TrimSpace(reply) == "" {
			continue
		}
		return reply, p.Name(), nil
	}
	return "", "", newError(ErrUpstream, "ai providers are unavailable")
}

func (s *aiService) ClearCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.DeletePrefix(ctx, aiCachePrefix)
}

func (s *aiService) Health(ctx context.Context) (*AIHealth, error) {
	h := &AIHealth{
		Status:         "healthy",
		Providers:      s.Providers(),
		CacheTTLSecond: int(s.ttl / time.Second),
	}
	if len(h.Providers) == 0 {
		h.Status = "degraded"
	}
	if s.cache != nil {
		n, err := s.cache.CountPrefix(ctx, aiCachePrefix)
		if err != nil {
			return nil, fmt.Errorf("count cache: %w", err)
		}
		h.CachedEntries = n
	}
	return h, nil
}

func cacheKey(kind AIKind, serialized []byte) string {
	sum := sha256.Sum256(serialized)
	return aiCachePrefix + string(kind) + ":" + hex.EncodeToString(sum[:])
}

// extractPayload strips markdown fences and returns the JSON at path.
func extractPayload(reply, path string) (string, bool) {
	text := strings.TrimSpace(reply)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	if !gjson.Valid(text) {
		return "", false
	}
	if path == "" {
		res := gjson.Parse(text)
		if !res.IsObject() || len(res.Map()) == 0 {
			return "", false
		}
		return text, true
	}
	res := gjson.Get(text, path)
	if !res.Exists() || !res.IsArray() || len(res.Array()) == 0 {
		return "", false
	}
	return res.Raw, true
}

var categoryRules = []struct {
	category   string
	confidence float64
	keywords   []string
}{
	{"technical", 0.8, []string{"code", "coding", "program", "bug", "api", "develop", "deploy", "código", "programar", "desenvolvimento"}},
	{"study", 0.8, []string{"study", "learn", "course", "video", "book", "read", "estudar", "aprender", "curso", "vídeo", "livro"}},
	{"work", 0.7, []string{"meeting", "call", "presentation", "project", "client", "reunião", "apresentação", "projeto"}},
	{"personal", 0.7, []string{"personal", "family", "health", "exercise", "gym", "pessoal", "família", "saúde", "exercício"}},
}

func (s *aiService) Categorize(items []CategorizeItem) []CategorizedItem {
	out := make([]CategorizedItem, 0, len(items))
	for _, item := range items {
		text := strings.ToLower(item.Text + " " + item.Title)
		category, confidence := "general", 0.5
		for _, rule := range categoryRules {
			if containsAny(text, rule.keywords) {
				category, confidence = rule.category, rule.confidence
				break
			}
		}
		out = append(out, CategorizedItem{
			ID:                item.ID,
			Original:          item,
			SuggestedCategory: category,
			Confidence:        confidence,
			Reasoning:         "keywords related to " + category,
		})
	}
	return out
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func (s *aiService) Summarize(content, kind string, maxLength int) (*Summary, error) {
	if strings.TrimSpace(content) == "" {
		return nil, invalid("content is required")
	}
	if kind == "" {
		kind = "general"
	}
	if maxLength <= 0 {
		maxLength = 200
	}

	summary := content
	// roughly five characters per word
	if len(strings.Fields(content)) > maxLength/5 {
		sentences := splitSentences(content)
		if len(sentences) > 3 {
			picked := append(sentences[:2:2], sentences[len(sentences)-1])
			summary = strings.Join(picked, ". ") + "."
		} else if len([]rune(content)) > maxLength {
			summary = string([]rune(content)[:maxLength]) + "..."
		}
	}

	return &Summary{
		Summary:          summary,
		OriginalLength:   len([]rune(content)),
		SummaryLength:    len([]rune(summary)),
		CompressionRatio: math.Round(float64(len([]rune(summary)))/float64(len([]rune(content)))*100) / 100,
		Type:             kind,
	}, nil
}

func splitSentences(content string) []string {
	var out []string
	for _, s := range strings.Split(content, ".") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (s *aiService) ScorePriorities(tasks []ScoreTask, priorityCategories []string) []ScoredTask {
	wanted := make(map[string]bool, len(priorityCategories))
	for _, c := range priorityCategories {
		wanted[strings.ToLower(c)] = true
	}

	out := make([]ScoredTask, 0, len(tasks))
	for _, t := range tasks {
		score := 50
		urgent := t.DueDate != ""
		if urgent {
			score += 20
		}

		importance := strings.ToLower(t.Priority)
		if importance == "" {
			importance = "medium"
		}
		switch importance {
		case "high", "alta":
			score += 30
		case "low", "baixa":
			score -= 10
		}

		effort := 60
		if t.EstimatedTime != nil {
			effort = *t.EstimatedTime
		}
		switch {
		case effort < 30:
			score += 15
		case effort > 120:
			score -= 15
		}

		match := wanted[strings.ToLower(t.Category)]
		if match {
			score += 10
		}

		out = append(out, ScoredTask{
			ID:            t.ID,
			Task:          t,
			PriorityScore: max(0, min(100, score)),
			Factors: ScoreFactors{
				Urgency:       urgent,
				Importance:    importance,
				Effort:        effort,
				CategoryMatch: match,
			},
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].PriorityScore > out[j].PriorityScore })
	return out
}

func fallbackTaskSuggestions() any {
	return []map[string]any{
		{
			"title":          "Review pending tasks",
			"description":    "Go through open tasks and reprioritise them",
			"priority":       "medium",
			"category":       "personal",
			"estimated_time": "15",
			"reasoning":      "Keeping the backlog tidy keeps focus on what matters",
		},
		{
			"title":          "Plan next week",
			"description":    "Set goals and a rough schedule for the coming days",
			"priority":       "high",
			"category":       "personal",
			"estimated_time": "30",
			"reasoning":      "Planning ahead improves follow-through",
		},
	}
}

func fallbackProductivityInsights() any {
	return map[string]any{
		"overall_score":         75,
		"strengths":             []string{"Consistent task completion", "Good organisation"},
		"areas_for_improvement": []string{"Time management", "Focus on priorities"},
		"recommendations": []map[string]any{
			{
				"title":       "Use the pomodoro technique",
				"description": "Work in 25 minute blocks to keep focus",
				"impact":      "high",
				"effort":      "easy",
			},
		},
		"trends": map[string]any{
			"productivity_trend": "stable",
			"focus_pattern":      "morning",
			"best_day":           "tuesday",
		},
	}
}

func fallbackStudyRecommendations() any {
	return []map[string]any{
		{
			"title":           "Effective study techniques",
			"type":            "article",
			"description":     "Proven methods to learn faster",
			"difficulty":      "beginner",
			"estimated_time":  "20 minutes",
			"relevance_score": 85,
			"topics":          []string{"productivity", "learning"},
			"url":             nil,
		},
	}
}

func fallbackScheduleOptimization() any {
	return map[string]any{
		"optimized_schedule": []map[string]any{
			{
				"time_slot":    "09:00-11:00",
				"activity":     "High priority tasks",
				"reasoning":    "Mornings carry the most mental energy",
				"energy_level": "high",
			},
			{
				"time_slot":    "14:00-16:00",
				"activity":     "Administrative tasks",
				"reasoning":    "Good window for routine work",
				"energy_level": "medium",
			},
		},
		"improvements": []string{
			"Keep complex work in the morning",
			"Leave the afternoon for simpler tasks",
		},
		"productivity_score": 80,
	}
}
