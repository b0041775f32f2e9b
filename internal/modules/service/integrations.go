package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/infra/httpclient"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/repo"
	"github.com/lexflow/lexflow-api/internal/pkg/secretbox"
	"github.com/lexflow/lexflow-api/internal/pkg/utils"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	CredGitHubToken     = "github_token"
	CredTrelloKey       = "trello_key"
	CredTrelloToken     = "trello_token"
	CredNotionToken     = "notion_token"
	CredCapacitiesToken = "capacities_token"

	TargetGitHubRepo          = "github_repo"
	TargetTrelloList          = "trello_list"
	TargetNotionDatabase      = "notion_database"
	TargetCapacitiesStructure = "capacities_structure"
	TargetObsidianVault       = "obsidian_vault"

	ConnConnected     = "connected"
	ConnError         = "error"
	ConnNotConfigured = "not_configured"
	ConnAvailable     = "available"
)

var credentialKeys = map[string]bool{
	CredGitHubToken:     true,
	CredTrelloKey:       true,
	CredTrelloToken:     true,
	CredNotionToken:     true,
	CredCapacitiesToken: true,
}

type GitHubAPI interface {
	Probe(ctx context.Context, token string) error
	CreateIssue(ctx context.Context, token, repoFullName, title, body string, labels []string) (*httpclient.Created, error)
}

type TrelloAPI interface {
	Probe(ctx context.Context, key, token string) error
	CreateCard(ctx context.Context, key, token, listID, name, desc, due string) (*httpclient.Created, error)
}

type NotionAPI interface {
	Probe(ctx context.Context, token string) error
	CreatePage(ctx context.Context, token, databaseID string, properties map[string]any) (*httpclient.Created, error)
}

type CapacitiesAPI interface {
	Probe(ctx context.Context, token string) error
	CreateObject(ctx context.Context, token, structureID, title string, properties map[string]any) (*httpclient.Created, error)
}

// IntegrationClients are the remote services tasks can be pushed to.
type IntegrationClients struct {
	GitHub     GitHubAPI
	Trello     TrelloAPI
	Notion     NotionAPI
	Capacities CapacitiesAPI
}

type IntegrationConfig struct {
	Credentials map[string]string `json:"credentials"`
	SyncTargets map[string]string `json:"syncTargets"`
}

type ConnectionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type SyncedItem struct {
	TaskID uuid.UUID `json:"task_id"`
	ID     string    `json:"id"`
	URL    string    `json:"url,omitempty"`
}

type TaskSyncResults struct {
	GitHub     []SyncedItem `json:"github"`
	Trello     []SyncedItem `json:"trello"`
	Notion     []SyncedItem `json:"notion"`
	Capacities []SyncedItem `json:"capacities"`
	Errors     []string     `json:"errors"`
}

type TaskSyncResult struct {
	SyncedTasks int             `json:"synced_tasks"`
	Results     TaskSyncResults `json:"results"`
}

type IntegrationService interface {
	Get(ctx context.Context, userID uuid.UUID) (*IntegrationConfig, error)
	SaveConfig(ctx context.Context, userID uuid.UUID, in IntegrationConfig) error
	TestConnections(ctx context.Context, userID uuid.UUID) (map[string]ConnectionStatus, error)
	// SyncTasks pushes the user's pending tasks to every configured target.
	// targets override the stored sync targets for this run only.
	SyncTasks(ctx context.Context, userID uuid.UUID, targets map[string]string) (*TaskSyncResult, error)
	ObsidianExport(ctx context.Context, userID uuid.UUID, vaultPath string) (int, error)
}

type integrationService struct {
	r            repo.IntegrationRepo
	projects     repo.ProjectRepo
	notes        repo.QuickNoteRepo
	clients      IntegrationClients
	box          *secretbox.Box
	obsidianRoot string
	log          *zap.Logger
}

func NewIntegrationService(r repo.IntegrationRepo, projects repo.ProjectRepo, notes repo.QuickNoteRepo, clients IntegrationClients, box *secretbox.Box, obsidianRoot string, log *zap.Logger) IntegrationService {
	return &integrationService{
		r:            r,
		projects:     projects,
		notes:        notes,
		clients:      clients,
		box:          box,
		obsidianRoot: obsidianRoot,
		log:          log,
	}
}

func stringMap(v any) map[string]string {
	out := map[string]string{}
	switch m := v.(type) {
	case map[string]any:
		for k, val := range m {
			if s, ok := val.(string); ok {
				out[k] = s
			}
		}
	case map[string]string:
		for k, val := range m {
			out[k] = val
		}
	}
	return out
}

// load returns the stored row with credentials opened.
func (s *integrationService) load(ctx context.Context, userID uuid.UUID) (*model.Integration, *IntegrationConfig, error) {
	row, err := s.r.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	cfg := &IntegrationConfig{
		Credentials: map[string]string{},
		SyncTargets: stringMap(row.Configs["syncTargets"]),
	}
	for k, sealed := range stringMap(row.Configs["credentials"]) {
		if sealed == "" {
			continue
		}
		if s.box == nil {
			return nil, nil, errors.New("encryption key is not configured")
		}
		plain, err := s.box.Open(sealed)
		if err != nil {
			s.log.Warn("open integration credential", zap.String("key", k), zap.Error(err))
			continue
		}
		cfg.Credentials[k] = plain
	}
	return row, cfg, nil
}

func (s *integrationService) Get(ctx context.Context, userID uuid.UUID) (*IntegrationConfig, error) {
	_, cfg, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	for k, v := range cfg.Credentials {
		cfg.Credentials[k] = utils.Obfuscate(v)
	}
	return cfg, nil
}

func (s *integrationService) SaveConfig(ctx context.Context, userID uuid.UUID, in IntegrationConfig) error {
	row, cfg, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	for k, v := range in.Credentials {
		if !credentialKeys[k] {
			return invalid(fmt.Sprintf("unknown credential %q", k))
		}
		if utils.IsObfuscated(v) {
			continue
		}
		cfg.Credentials[k] = strings.TrimSpace(v)
	}
	for k, v := range in.SyncTargets {
		cfg.SyncTargets[k] = strings.TrimSpace(v)
	}

	if s.box == nil {
		return errors.New("encryption key is not configured")
	}
	sealed := map[string]any{}
	for k, v := range cfg.Credentials {
		if v == "" {
			continue
		}
		enc, err := s.box.Seal(v)
		if err != nil {
			return err
		}
		sealed[k] = enc
	}
	targets := map[string]any{}
	for k, v := range cfg.SyncTargets {
		targets[k] = v
	}
	row.Configs = map[string]any{"credentials": sealed, "syncTargets": targets}
	return s.r.Save(ctx, row)
}

func probeStatus(err error) ConnectionStatus {
	switch {
	case err == nil:
		return ConnectionStatus{Status: ConnConnected}
	case errors.Is(err, httpclient.ErrNotConfigured):
		return ConnectionStatus{Status: ConnNotConfigured}
	default:
		return ConnectionStatus{Status: ConnError, Error: err.Error()}
	}
}

func (s *integrationService) TestConnections(ctx context.Context, userID uuid.UUID) (map[string]ConnectionStatus, error) {
	_, cfg, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	c := cfg.Credentials
	return map[string]ConnectionStatus{
		"github":     probeStatus(s.clients.GitHub.Probe(ctx, c[CredGitHubToken])),
		"trello":     probeStatus(s.clients.Trello.Probe(ctx, c[CredTrelloKey], c[CredTrelloToken])),
		"notion":     probeStatus(s.clients.Notion.Probe(ctx, c[CredNotionToken])),
		"capacities": probeStatus(s.clients.Capacities.Probe(ctx, c[CredCapacitiesToken])),
		"obsidian":   {Status: ConnAvailable},
	}, nil
}

func taskLabels(t model.Task) []string {
	labels := []string{"lex-flow"}
	if t.Priority == model.PriorityHigh {
		labels = append(labels, "high-priority")
	}
	if t.Category != "" {
		labels = append(labels, strings.ToLower(t.Category))
	}
	return labels
}

func taskBody(t model.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Description:** %s\n\n", t.Description)
	fmt.Fprintf(&b, "**Priority:** %s\n", t.Priority)
	fmt.Fprintf(&b, "**Category:** %s\n", t.Category)
	fmt.Fprintf(&b, "**Created:** %s\n", t.CreatedAt.UTC().Format(time.RFC3339))
	b.WriteString("\n---\n*Synced from Lex Flow*")
	return b.String()
}

func (s *integrationService) SyncTasks(ctx context.Context, userID uuid.UUID, targets map[string]string) (*TaskSyncResult, error) {
	_, cfg, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	for k, v := range targets {
		if v != "" {
			cfg.SyncTargets[k] = v
		}
	}
	tasks, err := s.projects.ListUserTasks(ctx, userID, model.TaskStatusPending)
	if err != nil {
		return nil, err
	}

	c, tg := cfg.Credentials, cfg.SyncTargets
	res := &TaskSyncResult{
		SyncedTasks: len(tasks),
		Results: TaskSyncResults{
			GitHub:     []SyncedItem{},
			Trello:     []SyncedItem{},
			Notion:     []SyncedItem{},
			Capacities: []SyncedItem{},
			Errors:     []string{},
		},
	}
	fail := func(service string, t model.Task, err error) {
		s.log.Warn("sync task", zap.String("service", service), zap.String("task_id", t.ID.String()), zap.Error(err))
		res.Results.Errors = append(res.Results.Errors, fmt.Sprintf("%s: %q: %v", service, t.Title, err))
	}

	for _, t := range tasks {
		body := taskBody(t)
		if c[CredGitHubToken] != "" && tg[TargetGitHubRepo] != "" {
			if out, err := s.clients.GitHub.CreateIssue(ctx, c[CredGitHubToken], tg[TargetGitHubRepo], t.Title, body, taskLabels(t)); err != nil {
				fail("github", t, err)
			} else {
				res.Results.GitHub = append(res.Results.GitHub, SyncedItem{TaskID: t.ID, ID: out.ID, URL: out.URL})
			}
		}
		if c[CredTrelloKey] != "" && c[CredTrelloToken] != "" && tg[TargetTrelloList] != "" {
			due := ""
			if t.DueDate != nil {
				due = t.DueDate.UTC().Format(time.RFC3339)
			}
			if out, err := s.clients.Trello.CreateCard(ctx, c[CredTrelloKey], c[CredTrelloToken], tg[TargetTrelloList], t.Title, body, due); err != nil {
				fail("trello", t, err)
			} else {
				res.Results.Trello = append(res.Results.Trello, SyncedItem{TaskID: t.ID, ID: out.ID, URL: out.URL})
			}
		}
		if c[CredNotionToken] != "" && tg[TargetNotionDatabase] != "" {
			props := map[string]any{
				"Name": map[string]any{"title": []any{map[string]any{"text": map[string]any{"content": t.Title}}}},
			}
			if out, err := s.clients.Notion.CreatePage(ctx, c[CredNotionToken], tg[TargetNotionDatabase], props); err != nil {
				fail("notion", t, err)
			} else {
				res.Results.Notion = append(res.Results.Notion, SyncedItem{TaskID: t.ID, ID: out.ID, URL: out.URL})
			}
		}
		if c[CredCapacitiesToken] != "" && tg[TargetCapacitiesStructure] != "" {
			props := map[string]any{"description": body}
			if out, err := s.clients.Capacities.CreateObject(ctx, c[CredCapacitiesToken], tg[TargetCapacitiesStructure], t.Title, props); err != nil {
				fail("capacities", t, err)
			} else {
				res.Results.Capacities = append(res.Results.Capacities, SyncedItem{TaskID: t.ID, ID: out.ID, URL: out.URL})
			}
		}
	}
	return res, nil
}

type noteFrontMatter struct {
	ID       string   `yaml:"id"`
	Category string   `yaml:"category"`
	Tags     []string `yaml:"tags,omitempty"`
	Created  string   `yaml:"created"`
	Source   string   `yaml:"source"`
}

func sanitizeFilename(s string) string {
	s = strings.TrimSpace(strings.SplitN(s, "\n", 2)[0])
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if r := []rune(out); len(r) > 60 {
		out = strings.TrimSpace(string(r[:60]))
	}
	if out == "" {
		out = "note"
	}
	return out
}

// renderNote renders a note as markdown with YAML front matter.
func renderNote(n model.QuickNote) ([]byte, error) {
	fm, err := yaml.Marshal(noteFrontMatter{
		ID:       n.ID.String(),
		Category: n.Category,
		Tags:     n.Tags,
		Created:  n.CreatedAt.UTC().Format(time.RFC3339),
		Source:   "lex-flow",
	})
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	b.WriteString(n.Content)
	b.WriteString("\n")
	return []byte(b.String()), nil
}

func (s *integrationService) ObsidianExport(ctx context.Context, userID uuid.UUID, vaultPath string) (int, error) {
	if s.obsidianRoot == "" {
		return 0, invalid("obsidian export is not configured")
	}
	vaultPath = strings.TrimSpace(vaultPath)
	if vaultPath == "" {
		_, cfg, err := s.load(ctx, userID)
		if err != nil {
			return 0, err
		}
		vaultPath = cfg.SyncTargets[TargetObsidianVault]
	}
	if vaultPath == "" {
		return 0, invalid("vault_path is required")
	}
	if !filepath.IsLocal(vaultPath) {
		return 0, invalid("vault_path must be a relative path inside the export root")
	}

	notes, err := s.notes.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	dir := filepath.Join(s.obsidianRoot, userID.String(), filepath.Clean(vaultPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create vault dir: %w", err)
	}
	for _, n := range notes {
		data, err := renderNote(n)
		if err != nil {
			return 0, err
		}
		name := fmt.Sprintf("%s-%s.md", sanitizeFilename(n.Content), n.ID.String()[:8])
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return 0, fmt.Errorf("write note: %w", err)
		}
	}
	s.log.Info("obsidian export", zap.String("user_id", userID.String()), zap.Int("notes", len(notes)))
	return len(notes), nil
}
