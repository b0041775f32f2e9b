package httpclient

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/lexflow/lexflow-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

func driveConfig() *config.Config {
	app := config.OAuthClientCfg{ClientID: "cid", ClientSecret: "secret", RedirectURI: "http://localhost/cb"}
	return &config.Config{Cloud: config.CloudCfg{GoogleDrive: app, Dropbox: app, OneDrive: app}}
}

func localEndpoints(base string) DriveEndpoints {
	return DriveEndpoints{
		Authorize: base + "/authorize",
		Token:     base + "/token",
		API:       base + "/api",
		Upload:    base + "/upload",
	}
}

func TestDrive_AuthURL(t *testing.T) {
	g := NewGoogleDriveClient(driveConfig(), zap.NewNop())
	u, err := url.Parse(g.AuthURL("st"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	q := u.Query()
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "http://localhost/cb", q.Get("redirect_uri"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "st", q.Get("state"))

	d := NewDropboxClient(driveConfig(), zap.NewNop())
	assert.Contains(t, d.AuthURL(""), "token_access_type=offline")
	o := NewOneDriveClient(driveConfig(), zap.NewNop())
	assert.Contains(t, o.AuthURL(""), "offline_access")
}

func TestDrive_ExchangeAndRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))
		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			assert.Equal(t, "abc", r.PostForm.Get("code"))
			_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"account_id":"dbid:1"}`))
		case "refresh_token":
			assert.Equal(t, "rt", r.PostForm.Get("refresh_token"))
			_, _ = w.Write([]byte(`{"access_token":"at2","expires_in":3600}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	d := NewDropboxClient(driveConfig(), zap.NewNop())
	d.SetEndpoints(localEndpoints(srv.URL))

	tok, err := d.Exchange(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "dbid:1", tok.AccountID)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(time.Hour), *tok.ExpiresAt(now))

	refreshed, err := d.Refresh(context.Background(), "rt")
	require.NoError(t, err)
	assert.Equal(t, "at2", refreshed.AccessToken)
	assert.Equal(t, "rt", refreshed.RefreshToken)
}

func TestDrive_RefreshFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	o := NewOneDriveClient(driveConfig(), zap.NewNop())
	o.SetEndpoints(localEndpoints(srv.URL))
	_, err := o.Refresh(context.Background(), "stale")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)

	unconfigured := NewOneDriveClient(&config.Config{}, zap.NewNop())
	assert.False(t, unconfigured.Configured())
	_, err = unconfigured.Exchange(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGoogleDrive_Upload(t *testing.T) {
	var created bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/files":
			assert.Contains(t, r.URL.Query().Get("q"), "name = 'Lex Flow'")
			_, _ = w.Write([]byte(`{"files":[]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/files":
			created = true
			_, _ = w.Write([]byte(`{"id":"folder-1"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/upload/files":
			assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))
			mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			assert.NoError(t, err)
			assert.Equal(t, "multipart/related", mediaType)

			mr := multipart.NewReader(r.Body, params["boundary"])
			meta, err := mr.NextPart()
			assert.NoError(t, err)
			raw, _ := io.ReadAll(meta)
			assert.Equal(t, "folder-1", gjson.GetBytes(raw, "parents.0").String())
			assert.Equal(t, "tasks.json", gjson.GetBytes(raw, "name").String())
			media, err := mr.NextPart()
			assert.NoError(t, err)
			raw, _ = io.ReadAll(media)
			assert.Equal(t, `[{"id":1}]`, string(raw))
			_, _ = w.Write([]byte(`{"id":"file-1"}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	g := NewGoogleDriveClient(driveConfig(), zap.NewNop())
	g.SetEndpoints(localEndpoints(srv.URL))
	f, err := g.Upload(context.Background(), "at", "Lex Flow", "tasks.json", []byte(`[{"id":1}]`))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "file-1", f.ID)
}

func TestDropboxAndOneDrive_Upload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "{}", string(body))
		switch {
		case r.URL.Path == "/upload/files/upload":
			arg := r.Header.Get("Dropbox-API-Arg")
			assert.Equal(t, "/Lex Flow/notes.json", gjson.Get(arg, "path").String())
			assert.Equal(t, "overwrite", gjson.Get(arg, "mode").String())
			_, _ = w.Write([]byte(`{"id":"id:db"}`))
		case strings.HasPrefix(r.URL.Path, "/upload/me/drive/root:"):
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/upload/me/drive/root:/Lex Flow/notes.json:/content", r.URL.Path)
			_, _ = w.Write([]byte(`{"id":"od-1"}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	d := NewDropboxClient(driveConfig(), zap.NewNop())
	d.SetEndpoints(localEndpoints(srv.URL))
	f, err := d.Upload(context.Background(), "at", "Lex Flow", "notes.json", []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, "id:db", f.ID)

	o := NewOneDriveClient(driveConfig(), zap.NewNop())
	o.SetEndpoints(localEndpoints(srv.URL))
	f, err = o.Upload(context.Background(), "at", "Lex Flow", "notes.json", []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, "od-1", f.ID)
}
