package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/infra/blob"
	"github.com/lexflow/lexflow-api/internal/infra/httpclient"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/repo"
	"github.com/lexflow/lexflow-api/internal/pkg/secretbox"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SyncFolder is the drive folder every export lands in.
const SyncFolder = "Lex Flow"

const exportVersion = "1.0"

// CloudDrive is one OAuth-connected storage provider.
type CloudDrive interface {
	Name() string
	Configured() bool
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*httpclient.DriveToken, error)
	Refresh(ctx context.Context, refreshToken string) (*httpclient.DriveToken, error)
	Upload(ctx context.Context, accessToken, folder, name string, data []byte) (*httpclient.DriveFile, error)
}

// Archiver keeps a server-side copy of each export.
type Archiver interface {
	UploadJSON(ctx context.Context, keyPrefix string, data any) (*blob.UploadedMeta, error)
}

type CloudProvider struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Configured  bool     `json:"configured"`
}

type SaveConnectionInput struct {
	Provider       string         `json:"provider"`
	AccessToken    string         `json:"access_token"`
	RefreshToken   string         `json:"refresh_token"`
	ExpiresIn      int            `json:"expires_in"`
	ProviderUserID string         `json:"provider_user_id"`
	SyncSettings   map[string]any `json:"sync_settings"`
}

type SyncFileResult struct {
	Name   string `json:"name"`
	FileID string `json:"file_id"`
	Items  int    `json:"items"`
}

type SyncResult struct {
	Provider   string           `json:"provider"`
	Files      []SyncFileResult `json:"files"`
	ArchiveKey string           `json:"archive_key,omitempty"`
	ArchiveURL string           `json:"archive_url,omitempty"`
	SyncedAt   time.Time        `json:"synced_at"`
}

type ProviderStatus struct {
	Connected      bool       `json:"connected"`
	SyncEnabled    bool       `json:"sync_enabled"`
	LastSync       *time.Time `json:"last_sync"`
	SyncStatus     string     `json:"sync_status"`
	ProviderUserID string     `json:"provider_user_id,omitempty"`
}

type SyncStatusSummary struct {
	TotalProviders int                       `json:"total_providers"`
	ActiveSyncs    int                       `json:"active_syncs"`
	LastSync       *time.Time                `json:"last_sync"`
	Providers      map[string]ProviderStatus `json:"providers"`
}

type CloudSyncService interface {
	Providers() []CloudProvider
	Connect(provider string) (string, error)
	// Callback trades an authorization code for tokens; the client stores
	// them with SaveConnection.
	Callback(ctx context.Context, provider, code string) (*httpclient.DriveToken, error)
	SaveConnection(ctx context.Context, userID uuid.UUID, in SaveConnectionInput) (*model.CloudSync, error)
	Connections(ctx context.Context, userID uuid.UUID) ([]model.CloudSync, error)
	Sync(ctx context.Context, userID uuid.UUID, provider string) (*SyncResult, error)
	Disconnect(ctx context.Context, userID uuid.UUID, provider string) error
	Status(ctx context.Context, userID uuid.UUID) (*SyncStatusSummary, error)
	// AutoSync syncs every enabled connection whose settings ask for it.
	AutoSync(ctx context.Context) (int, error)
}

// SyncSources are the stores an export reads from.
type SyncSources struct {
	Projects repo.ProjectRepo
	Notes    repo.QuickNoteRepo
	Pomodoro repo.PomodoroRepo
}

type cloudSyncService struct {
	r        repo.CloudSyncRepo
	src      SyncSources
	drives   map[string]CloudDrive
	box      *secretbox.Box
	archiver Archiver
	log      *zap.Logger
	now      func() time.Time
}

var providerInfo = map[string]CloudProvider{
	model.ProviderGoogleDrive: {ID: model.ProviderGoogleDrive, Name: "Google Drive", Description: "Sync with Google Drive", Features: []string{"backup", "sync", "sharing"}},
	model.ProviderDropbox:     {ID: model.ProviderDropbox, Name: "Dropbox", Description: "Sync with Dropbox", Features: []string{"backup", "sync", "sharing"}},
	model.ProviderOneDrive:    {ID: model.ProviderOneDrive, Name: "Microsoft OneDrive", Description: "Sync with OneDrive", Features: []string{"backup", "sync", "office_integration"}},
}

// NewCloudSyncService wires the drives by provider id. archiver may be nil.
func NewCloudSyncService(r repo.CloudSyncRepo, src SyncSources, drives map[string]CloudDrive, box *secretbox.Box, archiver Archiver, log *zap.Logger) CloudSyncService {
	return &cloudSyncService{
		r:        r,
		src:      src,
		drives:   drives,
		box:      box,
		archiver: archiver,
		log:      log,
		now:      time.Now,
	}
}

func (s *cloudSyncService) drive(provider string) (CloudDrive, error) {
	if _, ok := providerInfo[provider]; !ok {
		return nil, invalid("provider not supported")
	}
	d, ok := s.drives[provider]
	if !ok || d == nil {
		return nil, invalid("provider not supported")
	}
	return d, nil
}

func (s *cloudSyncService) Providers() []CloudProvider {
	out := make([]CloudProvider, 0, len(providerInfo))
	for id, p := range providerInfo {
		if d, ok := s.drives[id]; ok && d != nil {
			p.Configured = d.Configured()
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *cloudSyncService) Connect(provider string) (string, error) {
	d, err := s.drive(provider)
	if err != nil {
		return "", err
	}
	if !d.Configured() {
		return "", invalid(d.Name() + " is not configured")
	}
	return d.AuthURL(provider), nil
}

func (s *cloudSyncService) Callback(ctx context.Context, provider, code string) (*httpclient.DriveToken, error) {
	d, err := s.drive(provider)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, invalid("authorization code not provided")
	}
	t, err := d.Exchange(ctx, code)
	if err != nil {
		s.log.Warn("oauth code exchange failed", zap.String("provider", provider), zap.Error(err))
		return nil, invalid("authorization failed")
	}
	return t, nil
}

func (s *cloudSyncService) seal(plain string) (string, error) {
	if s.box == nil {
		return "", errors.New("encryption key is not configured")
	}
	return s.box.Seal(plain)
}

func (s *cloudSyncService) open(sealed string) (string, error) {
	if s.box == nil {
		return "", errors.New("encryption key is not configured")
	}
	return s.box.Open(sealed)
}

func (s *cloudSyncService) SaveConnection(ctx context.Context, userID uuid.UUID, in SaveConnectionInput) (*model.CloudSync, error) {
	if in.Provider == "" || in.AccessToken == "" {
		return nil, invalid("provider and access_token are required")
	}
	if _, err := s.drive(in.Provider); err != nil {
		return nil, err
	}

	access, err := s.seal(in.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("seal access token: %w", err)
	}
	refresh, err := s.seal(in.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("seal refresh token: %w", err)
	}

	settings := datatypes.JSONMap{"auto_sync": true}
	for k, v := range in.SyncSettings {
		settings[k] = v
	}
	c := &model.CloudSync{
		UserID:         userID,
		Provider:       in.Provider,
		ProviderUserID: in.ProviderUserID,
		AccessToken:    access,
		RefreshToken:   refresh,
		TokenExpiresAt: (&httpclient.DriveToken{ExpiresIn: in.ExpiresIn}).ExpiresAt(s.now().UTC()),
		SyncEnabled:    true,
		SyncStatus:     model.SyncIdle,
		SyncSettings:   settings,
	}
	if err := s.r.Upsert(ctx, c); err != nil {
		return nil, fmt.Errorf("save connection: %w", err)
	}
	s.log.Info("cloud connection saved", zap.String("user_id", userID.String()), zap.String("provider", in.Provider))
	return c, nil
}

func (s *cloudSyncService) Connections(ctx context.Context, userID uuid.UUID) ([]model.CloudSync, error) {
	items, err := s.r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.CloudSync{}
	}
	return items, nil
}

func (s *cloudSyncService) connection(ctx context.Context, userID uuid.UUID, provider string) (*model.CloudSync, error) {
	c, err := s.r.Get(ctx, userID, provider)
	if err != nil {
		return nil, orNotFound(err, "connection not found")
	}
	return c, nil
}

// accessToken returns a usable token, refreshing and persisting it when expired.
func (s *cloudSyncService) accessToken(ctx context.Context, d CloudDrive, c *model.CloudSync) (string, error) {
	token, err := s.open(c.AccessToken)
	if err != nil {
		return "", fmt.Errorf("open access token: %w", err)
	}
	now := s.now().UTC()
	if !c.Expired(now) {
		return token, nil
	}

	refresh, err := s.open(c.RefreshToken)
	if err != nil || refresh == "" {
		return "", unauthorized("token expired, reconnect " + d.Name())
	}
	t, err := d.Refresh(ctx, refresh)
	if err != nil {
		s.log.Warn("token refresh failed", zap.String("provider", c.Provider), zap.Error(err))
		return "", unauthorized("token refresh failed, reconnect " + d.Name())
	}
	if c.AccessToken, err = s.seal(t.AccessToken); err != nil {
		return "", err
	}
	if c.RefreshToken, err = s.seal(t.RefreshToken); err != nil {
		return "", err
	}
	c.TokenExpiresAt = t.ExpiresAt(now)
	return t.AccessToken, nil
}

func (s *cloudSyncService) setStatus(ctx context.Context, c *model.CloudSync, status string) {
	c.SyncStatus = status
	if err := s.r.Update(ctx, c); err != nil {
		s.log.Error("update sync status", zap.String("provider", c.Provider), zap.Error(err))
	}
}

func (s *cloudSyncService) Sync(ctx context.Context, userID uuid.UUID, provider string) (*SyncResult, error) {
	d, err := s.drive(provider)
	if err != nil {
		return nil, err
	}
	c, err := s.connection(ctx, userID, provider)
	if err != nil {
		return nil, err
	}

	token, err := s.accessToken(ctx, d, c)
	if err != nil {
		s.setStatus(ctx, c, model.SyncError)
		return nil, err
	}
	s.setStatus(ctx, c, model.SyncSyncing)

	files, err := s.snapshot(ctx, userID)
	if err != nil {
		s.setStatus(ctx, c, model.SyncError)
		return nil, err
	}

	now := s.now().UTC()
	res := &SyncResult{Provider: provider, SyncedAt: now}
	for _, f := range files {
		raw, err := sonic.ConfigStd.MarshalIndent(f.payload(now), "", "  ")
		if err != nil {
			s.setStatus(ctx, c, model.SyncError)
			return nil, fmt.Errorf("marshal %s: %w", f.name, err)
		}
		up, err := d.Upload(ctx, token, SyncFolder, f.name, raw)
		if err != nil {
			s.log.Warn("cloud upload failed", zap.String("provider", provider), zap.String("file", f.name), zap.Error(err))
			s.setStatus(ctx, c, model.SyncError)
			return nil, newError(ErrUpstream, "upload to "+d.Name()+" failed")
		}
		res.Files = append(res.Files, SyncFileResult{Name: f.name, FileID: up.ID, Items: f.count})
	}

	if s.archiver != nil {
		archive := make(map[string]any, len(files))
		for _, f := range files {
			archive[strings.TrimSuffix(f.name, ".json")] = f.data
		}
		meta, err := s.archiver.UploadJSON(ctx, "sync/"+userID.String(), archive)
		if err != nil {
			s.log.Warn("archive export", zap.String("user_id", userID.String()), zap.Error(err))
		} else {
			res.ArchiveKey = meta.Key
			res.ArchiveURL = meta.URL
		}
	}

	c.LastSync = &now
	s.setStatus(ctx, c, model.SyncCompleted)
	s.log.Info("cloud sync completed",
		zap.String("user_id", userID.String()),
		zap.String("provider", provider),
		zap.Int("files", len(res.Files)),
	)
	return res, nil
}

type exportFile struct {
	name  string
	key   string
	data  any
	count int
}

func (f exportFile) payload(now time.Time) map[string]any {
	return map[string]any{
		f.key:         f.data,
		"exported_at": now.Format(time.RFC3339),
		"version":     exportVersion,
	}
}

func (s *cloudSyncService) snapshot(ctx context.Context, userID uuid.UUID) ([]exportFile, error) {
	tasks, err := s.src.Projects.ListUserTasks(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	projects, err := s.src.Projects.ListOwned(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	notes, err := s.src.Notes.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	var settings any = map[string]any{}
	ps, err := s.src.Pomodoro.FindSettings(ctx, userID)
	switch {
	case err == nil:
		settings = ps
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if tasks == nil {
		tasks = []model.Task{}
	}
	if projects == nil {
		projects = []model.Project{}
	}
	if notes == nil {
		notes = []model.QuickNote{}
	}
	return []exportFile{
		{name: "tasks.json", key: "tasks", data: tasks, count: len(tasks)},
		{name: "projects.json", key: "projects", data: projects, count: len(projects)},
		{name: "notes.json", key: "notes", data: notes, count: len(notes)},
		{name: "settings.json", key: "settings", data: settings, count: 1},
	}, nil
}

func (s *cloudSyncService) Disconnect(ctx context.Context, userID uuid.UUID, provider string) error {
	if _, err := s.drive(provider); err != nil {
		return err
	}
	if err := s.r.Delete(ctx, userID, provider); err != nil {
		return orNotFound(err, "connection not found")
	}
	return nil
}

func (s *cloudSyncService) Status(ctx context.Context, userID uuid.UUID) (*SyncStatusSummary, error) {
	items, err := s.r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &SyncStatusSummary{TotalProviders: len(items), Providers: make(map[string]ProviderStatus, len(items))}
	for _, c := range items {
		if c.SyncEnabled {
			out.ActiveSyncs++
		}
		out.Providers[c.Provider] = ProviderStatus{
			Connected:      true,
			SyncEnabled:    c.SyncEnabled,
			LastSync:       c.LastSync,
			SyncStatus:     c.SyncStatus,
			ProviderUserID: c.ProviderUserID,
		}
		if c.LastSync != nil && (out.LastSync == nil || c.LastSync.After(*out.LastSync)) {
			out.LastSync = c.LastSync
		}
	}
	return out, nil
}

func (s *cloudSyncService) AutoSync(ctx context.Context) (int, error) {
	items, err := s.r.ListEnabled(ctx)
	if err != nil {
		return 0, fmt.Errorf("list connections: %w", err)
	}
	synced := 0
	for _, c := range items {
		if !c.AutoSync() {
			continue
		}
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if _, err := s.Sync(ctx, c.UserID, c.Provider); err != nil {
			s.log.Warn("auto sync failed",
				zap.String("user_id", c.UserID.String()),
				zap.String("provider", c.Provider),
				zap.Error(err),
			)
			continue
		}
		synced++
	}
	return synced, nil
}
