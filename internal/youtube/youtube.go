// Package youtube publishes episodes to a user's YouTube channel through the
// YouTube Data API, authorized with per-user OAuth tokens.
package youtube

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

const (
	maxTitleRunes = 100
	maxTags       = 50
	// People & Blogs; the podcast categories are not assignable on upload.
	categoryID = "22"
)

// Video is the metadata of one upload.
type Video struct {
	Title       string
	Description string
	Tags        []string
	Language    string
}

// Client wraps the OAuth configuration shared by the API and the worker.
type Client struct {
	oauth *oauth2.Config
	// extra service options, used to point the client at a test server
	opts []option.ClientOption
}

// NewClient builds the OAuth2 configuration against Google's endpoints.
func NewClient(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{yt.YoutubeUploadScope, yt.YoutubeReadonlyScope},
		},
	}
}

// AuthURL is the consent page. It always asks for offline access so a
// refresh token is issued.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

func (c *Client) service(ctx context.Context, ts oauth2.TokenSource) (*yt.Service, error) {
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, c.opts...)
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return svc, nil
}

// Channel returns the id and title of the channel tok belongs to.
func (c *Client) Channel(ctx context.Context, tok *oauth2.Token) (id, title string, err error) {
	svc, err := c.service(ctx, c.oauth.TokenSource(ctx, tok))
	if err != nil {
		return "", "", err
	}
	resp, err := svc.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("list channels: %w", err)
	}
	if len(resp.Items) == 0 {
		return "", "", fmt.Errorf("no channel for this account")
	}
	ch := resp.Items[0]
	if ch.Snippet != nil {
		title = ch.Snippet.Title
	}
	return ch.Id, title, nil
}

// Upload streams media as a public video. The returned token is the one in
// effect after the call and differs from tok when a refresh happened.
func (c *Client) Upload(ctx context.Context, tok *oauth2.Token, v Video, media io.Reader) (string, *oauth2.Token, error) {
	ts := oauth2.ReuseTokenSource(tok, c.oauth.TokenSource(ctx, tok))
	svc, err := c.service(ctx, ts)
	if err != nil {
		return "", nil, err
	}

	tags := v.Tags
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:                truncate(v.Title, maxTitleRunes),
			Description:          v.Description,
			Tags:                 tags,
			CategoryId:           categoryID,
			DefaultLanguage:      v.Language,
			DefaultAudioLanguage: v.Language,
		},
		Status: &yt.VideoStatus{PrivacyStatus: "public"},
	}

	resp, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(media).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("upload video: %w", err)
	}

	latest, err := ts.Token()
	if err != nil {
		latest = tok
	}
	return resp.Id, latest, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
