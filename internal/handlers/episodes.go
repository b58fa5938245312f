package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"podhost/internal/db"
	"podhost/internal/media"
	"podhost/internal/models"
	"podhost/internal/respond"
	"podhost/internal/slug"
	"podhost/internal/urlnorm"
)

type episodeRequest struct {
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	AudioURL        string     `json:"audioUrl"`
	AudioSizeBytes  *int64     `json:"audioSizeBytes"`
	DurationSeconds *int       `json:"durationSeconds"`
	PublishedAt     *time.Time `json:"publishedAt"`
	PodcastID       string     `json:"podcastId"`
	PodcastTitle    string     `json:"podcastTitle"`
	CoverURL        *string    `json:"coverUrl"`
}

type podcastRef struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Slug     string  `json:"slug"`
	CoverURL *string `json:"coverUrl"`
}

type episodeListItem struct {
	models.Episode
	Podcast   podcastRef `json:"podcast"`
	PlayCount int        `json:"playCount"`
}

func (h *Handlers) episodeListItem(e models.EpisodeWithPodcast) episodeListItem {
	return episodeListItem{
		Episode: h.episodeView(e.Episode),
		Podcast: podcastRef{
			ID:       e.PodcastID,
			Title:    e.PodcastTitle,
			Slug:     e.PodcastSlug,
			CoverURL: h.normalizer.NormalizePtr(e.PodcastCoverURL),
		},
		PlayCount: e.PlayCount,
	}
}

func (h *Handlers) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := h.store.ListEpisodesWithPodcast(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]episodeListItem, 0, len(episodes))
	for _, e := range episodes {
		out = append(out, h.episodeListItem(e))
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *Handlers) GetEpisode(w http.ResponseWriter, r *http.Request) {
	episode, err := h.store.GetEpisodeWithPodcast(r.Context(), mux.Vars(r)["id"])
	if isNotFound(err) {
		respond.Error(w, http.StatusNotFound, "Episode not found")
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, h.episodeListItem(*episode))
}

func (h *Handlers) CreateEpisode(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var req episodeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	switch {
	case req.Title == "":
		respond.Error(w, http.StatusBadRequest, "Title is required")
		return
	case !urlnorm.IsPlayable(req.AudioURL):
		respond.Error(w, http.StatusBadRequest, "audioUrl must be a relative path or an http(s) URL")
		return
	case req.CoverURL != nil && *req.CoverURL != "" && !urlnorm.IsPlayable(*req.CoverURL):
		respond.Error(w, http.StatusBadRequest, "coverUrl must be a relative path or an http(s) URL")
		return
	case req.DurationSeconds != nil && *req.DurationSeconds < 0:
		respond.Error(w, http.StatusBadRequest, "durationSeconds must not be negative")
		return
	case req.PodcastID == "" && strings.TrimSpace(req.PodcastTitle) == "":
		respond.Error(w, http.StatusBadRequest, "podcastId or podcastTitle is required")
		return
	}

	podcast, ok := h.podcastForEpisode(w, r, user, req)
	if !ok {
		return
	}

	episode := &models.Episode{
		PodcastID:       podcast.ID,
		Title:           req.Title,
		Description:     emptyToNil(req.Description),
		AudioURL:        h.normalizer.Normalize(req.AudioURL),
		AudioSizeBytes:  req.AudioSizeBytes,
		DurationSeconds: req.DurationSeconds,
	}
	if req.PublishedAt != nil {
		episode.PublishedAt = req.PublishedAt.UTC()
	}
	if episode.AudioSizeBytes == nil {
		episode.AudioSizeBytes = h.localSize(episode.AudioURL)
	}

	if err := h.store.CreateEpisode(r.Context(), episode); err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, h.episodeView(*episode))
}

// podcastForEpisode resolves the target podcast by id, or finds or creates
// one of the user's podcasts by title.
func (h *Handlers) podcastForEpisode(w http.ResponseWriter, r *http.Request, user *models.User, req episodeRequest) (*models.Podcast, bool) {
	ctx := r.Context()

	if req.PodcastID != "" {
		podcast, err := h.store.GetPodcastByID(ctx, req.PodcastID)
		if isNotFound(err) {
			respond.Error(w, http.StatusNotFound, "Podcast not found")
			return nil, false
		}
		if err != nil {
			h.writeError(w, err)
			return nil, false
		}
		if podcast.UserID != user.ID {
			respond.Error(w, http.StatusForbidden, "Not authorized")
			return nil, false
		}
		return podcast, true
	}

	title := strings.TrimSpace(req.PodcastTitle)
	cover := h.normalizer.NormalizePtr(emptyToNil(req.CoverURL))

	podcast, err := h.store.FindPodcastByTitle(ctx, user.ID, title)
	if err == nil {
		if podcast.CoverURL == nil && cover != nil {
			if err := h.store.UpdatePodcastCover(ctx, podcast.ID, *cover); err != nil {
				h.writeError(w, err)
				return nil, false
			}
			podcast.CoverURL = cover
		}
		return podcast, true
	}
	if !isNotFound(err) {
		h.writeError(w, err)
		return nil, false
	}

	base := slug.Make(title)
	if base == "" {
		base = "podcast"
	}
	podcast = &models.Podcast{UserID: user.ID, Title: title, Slug: base, CoverURL: cover}
	if slug.Reserved(base) {
		err = db.ErrConflict
	} else {
		err = h.store.CreatePodcast(ctx, podcast)
	}
	if errors.Is(err, db.ErrConflict) {
		podcast.Slug = base + "-" + uuid.NewString()[:8]
		err = h.store.CreatePodcast(ctx, podcast)
	}
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return podcast, true
}

// localSize stats objects in our own uploads directory.
func (h *Handlers) localSize(audioURL string) *int64 {
	if h.media == nil || !strings.HasPrefix(audioURL, media.FilePathPrefix) {
		return nil
	}
	u, err := url.Parse(audioURL)
	if err != nil {
		return nil
	}
	path, err := h.media.Resolve(strings.TrimPrefix(u.Path, media.FilePathPrefix))
	if err != nil {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil
	}
	size := info.Size()
	return &size
}

func (h *Handlers) DeleteEpisode(w http.ResponseWriter, r *http.Request) {
	episode, err := h.store.GetEpisodeWithPodcast(r.Context(), mux.Vars(r)["id"])
	if isNotFound(err) {
		respond.Error(w, http.StatusNotFound, "Episode not found")
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	if episode.PodcastUserID != currentUser(r).ID {
		respond.Error(w, http.StatusForbidden, "Not authorized")
		return
	}

	if err := h.store.DeleteEpisode(r.Context(), episode.ID); err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true})
}
