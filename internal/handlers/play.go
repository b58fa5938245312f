package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"podhost/internal/playtrack"
	"podhost/internal/respond"
)

// Play counts a listen started from the website and redirects to the audio.
// The redirect happens even when recording the play fails.
func (h *Handlers) Play(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["episodeId"]

	episode, err := h.store.GetEpisodeWithPodcast(r.Context(), id)
	if isNotFound(err) {
		respond.Error(w, http.StatusNotFound, "Episode not found")
		return
	}
	if err != nil {
		h.logger.Error("Play lookup failed", zap.String("episode_id", id), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to process play request")
		return
	}

	target := h.normalizer.Normalize(episode.AudioURL)
	if target == "" {
		h.logger.Error("Episode has no playable audio url", zap.String("episode_id", id))
		respond.Error(w, http.StatusInternalServerError, "Failed to process play request")
		return
	}

	if h.playPolicy.Counts(r) {
		referer := r.Referer()
		if err := h.store.RecordPlay(r.Context(), episode.ID, playtrack.RequestIdentifier(r), &referer); err != nil {
			h.logger.Warn("Failed to record play", zap.String("episode_id", id), zap.Error(err))
		}
	}

	http.Redirect(w, r, target, http.StatusFound)
}
