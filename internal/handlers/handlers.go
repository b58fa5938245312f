package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"podhost/internal/apperr"
	"podhost/internal/db"
	"podhost/internal/feed"
	"podhost/internal/media"
	"podhost/internal/middleware"
	"podhost/internal/models"
	"podhost/internal/playtrack"
	"podhost/internal/respond"
	"podhost/internal/urlnorm"
	"podhost/pkg/tasks"
)

// Store is everything the HTTP layer reads from and writes to the datastore.
type Store interface {
	middleware.UserStore
	Ping(ctx context.Context) error

	GetPodcastBySlug(ctx context.Context, slug string) (*models.Podcast, error)
	GetPodcastByID(ctx context.Context, id string) (*models.Podcast, error)
	FindPodcastByTitle(ctx context.Context, userID, title string) (*models.Podcast, error)
	ListPodcasts(ctx context.Context) ([]models.PodcastSummary, error)
	CreatePodcast(ctx context.Context, p *models.Podcast) error
	UpdatePodcast(ctx context.Context, p *models.Podcast) error
	UpdatePodcastCover(ctx context.Context, id, coverURL string) error
	DeletePodcast(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]models.CategorySummary, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	UpdateCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id string) error

	ListEpisodesByPodcast(ctx context.Context, podcastID string, limit int) ([]models.Episode, error)
	ListEpisodesWithPodcast(ctx context.Context) ([]models.EpisodeWithPodcast, error)
	GetEpisodeWithPodcast(ctx context.Context, id string) (*models.EpisodeWithPodcast, error)
	CreateEpisode(ctx context.Context, e *models.Episode) error
	DeleteEpisode(ctx context.Context, id string) error
	UpdateEpisodeYouTubeStatus(ctx context.Context, id, status string) error

	RecordPlay(ctx context.Context, episodeID, identifier string, referer *string) error
	DashboardOverview(ctx context.Context, userID string, since time.Time) (*models.DashboardOverview, error)

	GetYouTubeAccount(ctx context.Context, userID string) (*models.YouTubeAccount, error)
	UpsertYouTubeAccount(ctx context.Context, acc *models.YouTubeAccount) error
	DeleteYouTubeAccount(ctx context.Context, userID string) error
}

// YouTubeAuth is the OAuth side of the YouTube integration.
type YouTubeAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Channel(ctx context.Context, tok *oauth2.Token) (id, title string, err error)
}

type Options struct {
	Store       Store
	Renderer    *feed.Renderer
	Media       *media.Server
	Normalizer  *urlnorm.Normalizer
	PlayPolicy  *playtrack.Policy
	AsynqClient tasks.TaskEnqueuer
	// YouTube is nil when no OAuth client is configured.
	YouTube YouTubeAuth
	BaseURL string
	Logger  *zap.Logger
	Now     func() time.Time
}

type Handlers struct {
	store       Store
	renderer    *feed.Renderer
	media       *media.Server
	normalizer  *urlnorm.Normalizer
	playPolicy  *playtrack.Policy
	asynqClient tasks.TaskEnqueuer
	youtube     YouTubeAuth
	baseURL     string
	logger      *zap.Logger
	now         func() time.Time
}

func New(opts Options) *Handlers {
	h := &Handlers{
		store:       opts.Store,
		renderer:    opts.Renderer,
		media:       opts.Media,
		normalizer:  opts.Normalizer,
		playPolicy:  opts.PlayPolicy,
		asynqClient: opts.AsynqClient,
		youtube:     opts.YouTube,
		baseURL:     opts.BaseURL,
		logger:      opts.Logger,
		now:         opts.Now,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.now == nil {
		h.now = func() time.Time { return time.Now().UTC() }
	}
	if h.playPolicy == nil {
		h.playPolicy = playtrack.NewPolicy(nil)
	}
	return h
}

// writeError answers with the status and message carried by err. Errors
// without a kind are logged and reported as 500.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
	}
	respond.Error(w, status, apperr.Message(err))
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return apperr.InvalidRequest("Invalid request body")
	}
	return nil
}

// currentUser is only called behind AuthMiddleware.
func currentUser(r *http.Request) *models.User {
	user, _ := middleware.UserFromContext(r.Context())
	return user
}

func isNotFound(err error) bool {
	return errors.Is(err, db.ErrNotFound)
}
