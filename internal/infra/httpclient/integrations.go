package httpclient

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/lexflow/lexflow-api/internal/config"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const notionVersion = "2022-06-28"

// Created identifies an object made on a remote service.
type Created struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

// GitHubClient creates issues with a personal access token.
type GitHubClient struct{ Client }

func NewGitHubClient(cfg *config.Config, log *zap.Logger) *GitHubClient {
	return &GitHubClient{Client: newClient(cfg.Integrations.GitHubAPI, 15*time.Second, log)}
}

func githubHeader(token string) http.Header {
	return http.Header{
		"Authorization": {"token " + token},
		"Accept":        {"application/vnd.github.v3+json"},
	}
}

// Probe checks that the token is accepted.
func (c *GitHubClient) Probe(ctx context.Context, token string) error {
	if token == "" {
		return ErrNotConfigured
	}
	_, err := c.do(ctx, request{name: "github user", method: http.MethodGet, path: "/user", header: githubHeader(token)})
	return err
}

func (c *GitHubClient) CreateIssue(ctx context.Context, token, repoFullName, title, body string, labels []string) (*Created, error) {
	if token == "" {
		return nil, ErrNotConfigured
	}
	payload := map[string]any{"title": title, "body": body}
	if len(labels) > 0 {
		payload["labels"] = labels
	}
	resp, err := c.do(ctx, request{
		name:   "github create issue",
		method: http.MethodPost,
		path:   "/repos/" + repoFullName + "/issues",
		header: githubHeader(token),
		json:   payload,
	})
	if err != nil {
		return nil, err
	}
	return &Created{
		ID:  gjson.GetBytes(resp, "number").String(),
		URL: gjson.GetBytes(resp, "html_url").String(),
	}, nil
}

// TrelloClient authenticates with an API key and token pair.
type TrelloClient struct{ Client }

func NewTrelloClient(cfg *config.Config, log *zap.Logger) *TrelloClient {
	return &TrelloClient{Client: newClient(cfg.Integrations.TrelloAPI, 15*time.Second, log)}
}

func (c *TrelloClient) Probe(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return ErrNotConfigured
	}
	_, err := c.do(ctx, request{
		name:   "trello member",
		method: http.MethodGet,
		path:   "/members/me",
		query:  url.Values{"key": {key}, "token": {token}},
	})
	return err
}

func (c *TrelloClient) CreateCard(ctx context.Context, key, token, listID, name, desc, due string) (*Created, error) {
	if key == "" || token == "" {
		return nil, ErrNotConfigured
	}
	form := url.Values{
		"key":    {key},
		"token":  {token},
		"idList": {listID},
		"name":   {name},
		"desc":   {desc},
	}
	if due != "" {
		form.Set("due", due)
	}
	resp, err := c.do(ctx, request{name: "trello create card", method: http.MethodPost, path: "/cards", form: form})
	if err != nil {
		return nil, err
	}
	return &Created{
		ID:  gjson.GetBytes(resp, "id").String(),
		URL: gjson.GetBytes(resp, "url").String(),
	}, nil
}

// NotionClient creates database pages with an integration token.
type NotionClient struct{ Client }

func NewNotionClient(cfg *config.Config, log *zap.Logger) *NotionClient {
	return &NotionClient{Client: newClient(cfg.Integrations.NotionAPI, 15*time.Second, log)}
}

func notionHeader(token string) http.Header {
	return http.Header{
		"Authorization":  {"Bearer " + token},
		"Notion-Version": {notionVersion},
	}
}

func (c *NotionClient) Probe(ctx context.Context, token string) error {
	if token == "" {
		return ErrNotConfigured
	}
	_, err := c.do(ctx, request{name: "notion user", method: http.MethodGet, path: "/users/me", header: notionHeader(token)})
	return err
}

func (c *NotionClient) CreatePage(ctx context.Context, token, databaseID string, properties map[string]any) (*Created, error) {
	if token == "" {
		return nil, ErrNotConfigured
	}
	resp, err := c.do(ctx, request{
		name:   "notion create page",
		method: http.MethodPost,
		path:   "/pages",
		header: notionHeader(token),
		json: map[string]any{
			"parent":     map[string]any{"database_id": databaseID},
			"properties": properties,
		},
	})
	if err != nil {
		return nil, err
	}
	return &Created{
		ID:  gjson.GetBytes(resp, "id").String(),
		URL: gjson.GetBytes(resp, "url").String(),
	}, nil
}

// CapacitiesClient creates objects in a Capacities space.
type CapacitiesClient struct{ Client }

func NewCapacitiesClient(cfg *config.Config, log *zap.Logger) *CapacitiesClient {
	return &CapacitiesClient{Client: newClient(cfg.Integrations.CapacitiesAPI, 15*time.Second, log)}
}

func capacitiesHeader(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

func (c *CapacitiesClient) Probe(ctx context.Context, token string) error {
	if token == "" {
		return ErrNotConfigured
	}
	_, err := c.do(ctx, request{name: "capacities spaces", method: http.MethodGet, path: "/spaces", header: capacitiesHeader(token)})
	return err
}

func (c *CapacitiesClient) CreateObject(ctx context.Context, token, structureID, title string, properties map[string]any) (*Created, error) {
	if token == "" {
		return nil, ErrNotConfigured
	}
	payload := map[string]any{"structureId": structureID, "title": title}
	if len(properties) > 0 {
		payload["properties"] = properties
	}
	resp, err := c.do(ctx, request{
		name:   "capacities create object",
		method: http.MethodPost,
		path:   "/objects",
		header: capacitiesHeader(token),
		json:   payload,
	})
	if err != nil {
		return nil, err
	}
	return &Created{ID: gjson.GetBytes(resp, "id").String()}, nil
}
