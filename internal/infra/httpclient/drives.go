package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lexflow/lexflow-api/internal/config"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// DriveToken is an OAuth token response of a cloud drive.
type DriveToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	AccountID    string `json:"account_id"`
}

// ExpiresAt converts ExpiresIn into an absolute time; nil when unknown.
func (t *DriveToken) ExpiresAt(now time.Time) *time.Time {
	if t.ExpiresIn <= 0 {
		return nil
	}
	at := now.Add(time.Duration(t.ExpiresIn) * time.Second)
	return &at
}

type DriveFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DriveEndpoints are the provider URLs; tests point them at a local server.
type DriveEndpoints struct {
	Authorize string
	Token     string
	API       string
	Upload    string
}

type oauthApp struct {
	Client
	cfg       config.OAuthClientCfg
	endpoints DriveEndpoints
}

func newOAuthApp(cfg config.OAuthClientCfg, ep DriveEndpoints, log *zap.Logger) oauthApp {
	return oauthApp{Client: newClient("", 60*time.Second, log), cfg: cfg, endpoints: ep}
}

func (a *oauthApp) Configured() bool { return a.cfg.ClientID != "" && a.cfg.ClientSecret != "" }

// SetEndpoints replaces the provider URLs.
func (a *oauthApp) SetEndpoints(ep DriveEndpoints) { a.endpoints = ep }

func (a *oauthApp) authURL(state string, extra url.Values) string {
	q := url.Values{
		"client_id":     {a.cfg.ClientID},
		"redirect_uri":  {a.cfg.RedirectURI},
		"response_type": {"code"},
	}
	if state != "" {
		q.Set("state", state)
	}
	for k, vs := range extra {
		q[k] = vs
	}
	return a.endpoints.Authorize + "?" + q.Encode()
}

func (a *oauthApp) token(ctx context.Context, name string, form url.Values) (*DriveToken, error) {
	if !a.Configured() {
		return nil, ErrNotConfigured
	}
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)

	body, err := a.do(ctx, request{name: name, method: http.MethodPost, path: a.endpoints.Token, form: form})
	if err != nil {
		return nil, err
	}
	var t DriveToken
	if err := sonic.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if t.AccessToken == "" {
		return nil, fmt.Errorf("%s: empty access token", name)
	}
	return &t, nil
}

func (a *oauthApp) Exchange(ctx context.Context, code string) (*DriveToken, error) {
	return a.token(ctx, "token exchange", url.Values{
		"code":         {code},
		"grant_type":   {"authorization_code"},
		"redirect_uri": {a.cfg.RedirectURI},
	})
}

func (a *oauthApp) Refresh(ctx context.Context, refreshToken string) (*DriveToken, error) {
	t, err := a.token(ctx, "token refresh", url.Values{
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	})
	if err != nil {
		return nil, err
	}
	// providers may omit the refresh token when it is unchanged
	if t.RefreshToken == "" {
		t.RefreshToken = refreshToken
	}
	return t, nil
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

// GoogleDriveClient stores files under a named folder of the user's drive.
type GoogleDriveClient struct{ oauthApp }

func NewGoogleDriveClient(cfg *config.Config, log *zap.Logger) *GoogleDriveClient {
	return &GoogleDriveClient{newOAuthApp(cfg.Cloud.GoogleDrive, DriveEndpoints{
		Authorize: "https://accounts.google.com/o/oauth2/v2/auth",
		Token:     "https://oauth2.googleapis.com/token",
		API:       "https://www.googleapis.com/drive/v3",
		Upload:    "https://www.googleapis.com/upload/drive/v3",
	}, log)}
}

func (g *GoogleDriveClient) Name() string { return "Google Drive" }

func (g *GoogleDriveClient) AuthURL(state string) string {
	return g.authURL(state, url.Values{
		"scope":       {"https://www.googleapis.com/auth/drive.file"},
		"access_type": {"offline"},
		"prompt":      {"consent"},
	})
}

const googleFolderMime = "application/vnd.google-apps.folder"

func (g *GoogleDriveClient) ensureFolder(ctx context.Context, token, folder string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(folder, "'", `\'`), googleFolderMime)
	body, err := g.do(ctx, request{
		name:   "google drive list",
		method: http.MethodGet,
		path:   g.endpoints.API + "/files",
		query:  url.Values{"q": {q}, "fields": {"files(id,name)"}},
		header: bearer(token),
	})
	if err != nil {
		return "", err
	}
	if id := gjson.GetBytes(body, "files.0.id").String(); id != "" {
		return id, nil
	}

	body, err = g.do(ctx, request{
		name:   "google drive create folder",
		method: http.MethodPost,
		path:   g.endpoints.API + "/files",
		header: bearer(token),
		json:   map[string]any{"name": folder, "mimeType": googleFolderMime},
	})
	if err != nil {
		return "", err
	}
	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return "", fmt.Errorf("google drive create folder: missing id")
	}
	return id, nil
}

func (g *GoogleDriveClient) Upload(ctx context.Context, token, folder, name string, data []byte) (*DriveFile, error) {
	folderID, err := g.ensureFolder(ctx, token, folder)
	if err != nil {
		return nil, err
	}

	meta, err := sonic.Marshal(map[string]any{"name": name, "parents": []string{folderID}})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, part := range []struct {
		contentType string
		data        []byte
	}{
		{"application/json; charset=UTF-8", meta},
		{"application/json", data},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.contentType}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(part.data); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	body, err := g.do(ctx, request{
		name:        "google drive upload",
		method:      http.MethodPost,
		path:        g.endpoints.Upload + "/files",
		query:       url.Values{"uploadType": {"multipart"}},
		header:      bearer(token),
		body:        buf.Bytes(),
		contentType: "multipart/related; boundary=" + mw.Boundary(),
	})
	if err != nil {
		return nil, err
	}
	return &DriveFile{ID: gjson.GetBytes(body, "id").String(), Name: name}, nil
}

// DropboxClient writes files by path; folders are created implicitly.
type DropboxClient struct{ oauthApp }

func NewDropboxClient(cfg *config.Config, log *zap.Logger) *DropboxClient {
	return &DropboxClient{newOAuthApp(cfg.Cloud.Dropbox, DriveEndpoints{
		Authorize: "https://www.dropbox.com/oauth2/authorize",
		Token:     "https://api.dropboxapi.com/oauth2/token",
		API:       "https://api.dropboxapi.com/2",
		Upload:    "https://content.dropboxapi.com/2",
	}, log)}
}

func (d *DropboxClient) Name() string { return "Dropbox" }

func (d *DropboxClient) AuthURL(state string) string {
	return d.authURL(state, url.Values{"token_access_type": {"offline"}})
}

func (d *DropboxClient) Upload(ctx context.Context, token, folder, name string, data []byte) (*DriveFile, error) {
	arg, err := sonic.MarshalString(map[string]any{
		"path":       "/" + folder + "/" + name,
		"mode":       "overwrite",
		"autorename": false,
	})
	if err != nil {
		return nil, err
	}
	h := bearer(token)
	h.Set("Dropbox-API-Arg", arg)

	body, err := d.do(ctx, request{
		name:        "dropbox upload",
		method:      http.MethodPost,
		path:        d.endpoints.Upload + "/files/upload",
		header:      h,
		body:        data,
		contentType: "application/octet-stream",
	})
	if err != nil {
		return nil, err
	}
	return &DriveFile{ID: gjson.GetBytes(body, "id").String(), Name: name}, nil
}

// OneDriveClient uploads through Microsoft Graph simple upload.
type OneDriveClient struct{ oauthApp }

func NewOneDriveClient(cfg *config.Config, log *zap.Logger) *OneDriveClient {
	return &OneDriveClient{newOAuthApp(cfg.Cloud.OneDrive, DriveEndpoints{
		Authorize: "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
		Token:     "https://login.microsoftonline.com/common/oauth2/v2.0/token",
		API:       "https://graph.microsoft.com/v1.0",
		Upload:    "https://graph.microsoft.com/v1.0",
	}, log)}
}

func (o *OneDriveClient) Name() string { return "OneDrive" }

func (o *OneDriveClient) AuthURL(state string) string {
	return o.authURL(state, url.Values{
		"scope":         {"Files.ReadWrite offline_access"},
		"response_mode": {"query"},
	})
}

func (o *OneDriveClient) Upload(ctx context.Context, token, folder, name string, data []byte) (*DriveFile, error) {
	path := fmt.Sprintf("%s/me/drive/root:/%s/%s:/content", o.endpoints.Upload, url.PathEscape(folder), url.PathEscape(name))
	body, err := o.do(ctx, request{
		name:        "onedrive upload",
		method:      http.MethodPut,
		path:        path,
		header:      bearer(token),
		body:        data,
		contentType: "application/json",
	})
	if err != nil {
		return nil, err
	}
	return &DriveFile{ID: gjson.GetBytes(body, "id").String(), Name: name}, nil
}
