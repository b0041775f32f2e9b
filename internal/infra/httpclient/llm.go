package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lexflow/lexflow-api/internal/config"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// GeminiClient calls the Google generative language API.
type GeminiClient struct {
	Client
	apiKey string
	model  string
}

func NewGeminiClient(cfg *config.Config, log *zap.Logger) *GeminiClient {
	return &GeminiClient{
		Client: newClient(cfg.AI.GeminiBaseURL, time.Duration(cfg.AI.TimeoutSec)*time.Second, log),
		apiKey: cfg.AI.GeminiAPIKey,
		model:  cfg.AI.GeminiModel,
	}
}

func (g *GeminiClient) Name() string { return "gemini" }

func (g *GeminiClient) Configured() bool { return g.apiKey != "" }

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if !g.Configured() {
		return "", ErrNotConfigured
	}

	body, err := g.do(ctx, request{
		name:   "gemini generateContent",
		method: http.MethodPost,
		path:   fmt.Sprintf("/models/%s:generateContent", g.model),
		query:  url.Values{"key": {g.apiKey}},
		json: map[string]any{
			"contents": []map[string]any{
				{"parts": []map[string]any{{"text": prompt}}},
			},
			"generationConfig": map[string]any{"temperature": 0.7},
		},
	})
	if err != nil {
		return "", err
	}

	text := gjson.GetBytes(body, "candidates.0.content.parts.0.text")
	if !text.Exists() || text.String() == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return text.String(), nil
}

// OpenAIClient calls the chat completions API.
type OpenAIClient struct {
	Client
	apiKey string
	model  string
}

func NewOpenAIClient(cfg *config.Config, log *zap.Logger) *OpenAIClient {
	return &OpenAIClient{
		Client: newClient(cfg.AI.OpenAIBaseURL, time.Duration(cfg.AI.TimeoutSec)*time.Second, log),
		apiKey: cfg.AI.OpenAIAPIKey,
		model:  cfg.AI.OpenAIModel,
	}
}

func (o *OpenAIClient) Name() string { return "openai" }

func (o *OpenAIClient) Configured() bool { return o.apiKey != "" }

func (o *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if !o.Configured() {
		return "", ErrNotConfigured
	}

	body, err := o.do(ctx, request{
		name:   "openai chat completion",
		method: http.MethodPost,
		path:   "/chat/completions",
		header: http.Header{"Authorization": {"Bearer " + o.apiKey}},
		json: map[string]any{
			"model": o.model,
			"messages": []map[string]string{
				{"role": "system", "content": "You are a productivity assistant. Answer with valid JSON when asked for JSON."},
				{"role": "user", "content": prompt},
			},
			"temperature": 0.7,
		},
	})
	if err != nil {
		return "", err
	}

	text := gjson.GetBytes(body, "choices.0.message.content")
	if !text.Exists() || text.String() == "" {
		return "", fmt.Errorf("openai: empty response")
	}
	return text.String(), nil
}
