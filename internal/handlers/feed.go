package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"podhost/internal/feed"
	"podhost/internal/models"
	"podhost/internal/respond"
)

const feedInfoEpisodes = 10

func writeRSS(w http.ResponseWriter, filename, body string) {
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// GetPodcastFeed serves /feeds/{slug}.xml.
func (h *Handlers) GetPodcastFeed(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	podcast, err := h.store.GetPodcastBySlug(r.Context(), slug)
	if isNotFound(err) {
		respond.Text(w, http.StatusNotFound, "Podcast not found")
		return
	}
	if err != nil {
		h.logger.Error("Error getting podcast", zap.String("slug", slug), zap.Error(err))
		respond.Text(w, http.StatusInternalServerError, "Error generating RSS feed")
		return
	}

	episodes, err := h.store.ListEpisodesByPodcast(r.Context(), podcast.ID, 0)
	if err != nil {
		h.logger.Error("Error getting episodes", zap.String("slug", slug), zap.Error(err))
		respond.Text(w, http.StatusInternalServerError, "Error generating RSS feed")
		return
	}

	writeRSS(w, slug+".xml", h.renderer.RenderPodcast(podcast, episodes))
}

// GetCatalogFeed serves /feeds/all.xml with every podcast's episodes.
func (h *Handlers) GetCatalogFeed(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListEpisodesWithPodcast(r.Context())
	if err != nil {
		h.logger.Error("Error getting catalog episodes", zap.Error(err))
		respond.Text(w, http.StatusInternalServerError, "Error generating RSS feed")
		return
	}

	writeRSS(w, "all.xml", h.renderer.RenderCatalog(feed.CatalogFromJoined(rows)))
}

type feedInfo struct {
	Podcast  models.Podcast   `json:"podcast"`
	Episodes []models.Episode `json:"episodes"`
	RSSURL   string           `json:"rssUrl"`
}

// GetFeedInfo serves the JSON preview of a feed at /feeds/{slug}.
func (h *Handlers) GetFeedInfo(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	podcast, err := h.store.GetPodcastBySlug(r.Context(), slug)
	if isNotFound(err) {
		respond.Error(w, http.StatusNotFound, "Podcast not found")
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	episodes, err := h.store.ListEpisodesByPodcast(r.Context(), podcast.ID, feedInfoEpisodes)
	if err != nil {
		h.writeError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, feedInfo{
		Podcast:  h.podcastView(*podcast),
		Episodes: h.episodeViews(episodes),
		RSSURL:   h.baseURL + "/feeds/" + podcast.Slug + ".xml",
	})
}

func (h *Handlers) podcastView(p models.Podcast) models.Podcast {
	p.CoverURL = h.normalizer.NormalizePtr(p.CoverURL)
	p.OwnerEmail = nil
	return p
}

func (h *Handlers) episodeView(e models.Episode) models.Episode {
	e.AudioURL = h.normalizer.Normalize(e.AudioURL)
	return e
}

func (h *Handlers) episodeViews(episodes []models.Episode) []models.Episode {
	out := make([]models.Episode, 0, len(episodes))
	for _, e := range episodes {
		out = append(out, h.episodeView(e))
	}
	return out
}
