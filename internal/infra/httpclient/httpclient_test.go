package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/lexflow/lexflow-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

func testConfig(base string) *config.Config {
	return &config.Config{
		AI: config.AICfg{
			GeminiAPIKey:  "g-key",
			GeminiModel:   "gemini-test",
			GeminiBaseURL: base,
			OpenAIAPIKey:  "o-key",
			OpenAIModel:   "gpt-test",
			OpenAIBaseURL: base,
			TimeoutSec:    5,
		},
		Integrations: config.IntegrationsCfg{
			GitHubAPI:     base,
			TrelloAPI:     base,
			NotionAPI:     base,
			CapacitiesAPI: base,
		},
	}
}

func TestGeminiClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.URL.Query().Get("key"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "hello", gjson.GetBytes(body, "contents.0.parts.0.text").String())
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hi there"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(testConfig(srv.URL), zap.NewNop())
	out, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
}

func TestOpenAIClient_Generate(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{name: "ok", status: http.StatusOK, body: `{"choices":[{"message":{"content":"answer"}}]}`, want: "answer"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, wantErr: true},
		{name: "empty", status: http.StatusOK, body: `{"choices":[]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer o-key", r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			out, err := NewOpenAIClient(testConfig(srv.URL), zap.NewNop()).Generate(context.Background(), "q")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestClients_NotConfigured(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:0")
	cfg.AI.GeminiAPIKey = ""

	_, err := NewGeminiClient(cfg, zap.NewNop()).Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, NewGitHubClient(cfg, zap.NewNop()).Probe(context.Background(), ""), ErrNotConfigured)
	assert.ErrorIs(t, NewTrelloClient(cfg, zap.NewNop()).Probe(context.Background(), "k", ""), ErrNotConfigured)
}

func TestGitHubClient_CreateIssue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/app/issues", r.URL.Path)
		assert.Equal(t, "token ghp", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "lex-flow", gjson.GetBytes(body, "labels.0").String())
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number":7,"html_url":"https://github.com/acme/app/issues/7"}`))
	}))
	defer srv.Close()

	c := NewGitHubClient(testConfig(srv.URL), zap.NewNop())
	out, err := c.CreateIssue(context.Background(), "ghp", "acme/app", "t", "b", []string{"lex-flow"})
	require.NoError(t, err)
	assert.Equal(t, "7", out.ID)
	assert.Contains(t, out.URL, "/issues/7")
}

func TestTrelloClient_CreateCard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "/cards", r.URL.Path)
		assert.Equal(t, "list-1", r.PostForm.Get("idList"))
		assert.Equal(t, "k", r.PostForm.Get("key"))
		_, _ = w.Write([]byte(`{"id":"c1","url":"https://trello.com/c/c1"}`))
	}))
	defer srv.Close()

	out, err := NewTrelloClient(testConfig(srv.URL), zap.NewNop()).CreateCard(context.Background(), "k", "t", "list-1", "name", "desc", "")
	require.NoError(t, err)
	assert.Equal(t, "c1", out.ID)
}

func TestNotionAndCapacities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pages":
			assert.Equal(t, notionVersion, r.Header.Get("Notion-Version"))
			_, _ = w.Write([]byte(`{"id":"p1","url":"https://notion.so/p1"}`))
		case "/objects":
			assert.Equal(t, "Bearer cap", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"id":"o1"}`))
		case "/users/me":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	page, err := NewNotionClient(cfg, zap.NewNop()).CreatePage(context.Background(), "n", "db", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "p1", page.ID)

	obj, err := NewCapacitiesClient(cfg, zap.NewNop()).CreateObject(context.Background(), "cap", "s", "title", nil)
	require.NoError(t, err)
	assert.Equal(t, "o1", obj.ID)

	err = NewNotionClient(cfg, zap.NewNop()).Probe(context.Background(), "bad")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
}

func TestClient_QueryEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a b", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL+"/", 0, zap.NewNop())
	_, err := c.do(context.Background(), request{name: "t", method: http.MethodGet, path: "/x", query: url.Values{"q": {"a b"}}})
	require.NoError(t, err)
}
