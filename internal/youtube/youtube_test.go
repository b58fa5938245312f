package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

func TestAuthURL(t *testing.T) {
	c := NewClient("client-id", "secret", "http://localhost:8080/api/youtube/callback")

	u, err := url.Parse(c.AuthURL("state-1"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Contains(t, q.Get("scope"), "https://www.googleapis.com/auth/youtube.upload")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "äöü", truncate("äöüß", 3))
}

func newTestClient(t *testing.T) (*Client, *atomic.Int32) {
	t.Helper()
	var refreshes atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/token":
			refreshes.Add(1)
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "fresh-access",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		case strings.HasSuffix(r.URL.Path, "/videos"):
			assert.Equal(t, http.MethodPost, r.Method)
			assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
			json.NewEncoder(w).Encode(map[string]any{"id": "video-123"})
		case strings.HasSuffix(r.URL.Path, "/channels"):
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{{"id": "UC123", "snippet": map[string]any{"title": "My Channel"}}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	c := NewClient("client-id", "secret", "http://localhost/callback")
	c.oauth.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	c.opts = []option.ClientOption{option.WithEndpoint(srv.URL + "/")}
	return c, &refreshes
}

func TestUploadWithValidToken(t *testing.T) {
	c, refreshes := newTestClient(t)
	tok := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}

	id, latest, err := c.Upload(context.Background(), tok, Video{Title: "Episode", Tags: []string{"podcast"}}, strings.NewReader("mp4 bytes"))
	require.NoError(t, err)
	assert.Equal(t, "video-123", id)
	assert.Equal(t, "access", latest.AccessToken)
	assert.Equal(t, int32(0), refreshes.Load())
}

func TestUploadRefreshesExpiredToken(t *testing.T) {
	c, refreshes := newTestClient(t)
	tok := &oauth2.Token{AccessToken: "stale", RefreshToken: "refresh", Expiry: time.Now().Add(-time.Hour)}

	id, latest, err := c.Upload(context.Background(), tok, Video{Title: "Episode"}, strings.NewReader("mp4 bytes"))
	require.NoError(t, err)
	assert.Equal(t, "video-123", id)
	assert.Equal(t, "fresh-access", latest.AccessToken)
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestChannel(t *testing.T) {
	c, _ := newTestClient(t)
	tok := &oauth2.Token{AccessToken: "access", Expiry: time.Now().Add(time.Hour)}

	id, title, err := c.Channel(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "UC123", id)
	assert.Equal(t, "My Channel", title)
}
