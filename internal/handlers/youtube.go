package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"podhost/internal/models"
	"podhost/internal/respond"
	"podhost/pkg/tasks"
)

const (
	fallbackChannelID    = "unknown"
	fallbackChannelTitle = "YouTube Channel"
)

// youtubeEnabled answers 503 when no OAuth client is configured.
func (h *Handlers) youtubeEnabled(w http.ResponseWriter) bool {
	if h.youtube == nil {
		respond.Error(w, http.StatusServiceUnavailable, "YouTube integration is not configured")
		return false
	}
	return true
}

func (h *Handlers) YouTubeAuth(w http.ResponseWriter, r *http.Request) {
	if !h.youtubeEnabled(w) {
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"authUrl": h.youtube.AuthURL(currentUser(r).ID)})
}

func (h *Handlers) YouTubeCallback(w http.ResponseWriter, r *http.Request) {
	if !h.youtubeEnabled(w) {
		return
	}
	user := currentUser(r)

	q := r.URL.Query()
	code := q.Get("code")
	if code == "" {
		respond.Error(w, http.StatusBadRequest, "Missing authorization code")
		return
	}
	if state := q.Get("state"); state != "" && state != user.ID {
		respond.Error(w, http.StatusBadRequest, "State mismatch")
		return
	}

	tok, err := h.youtube.Exchange(r.Context(), code)
	if err != nil || tok.AccessToken == "" {
		h.logger.Error("YouTube code exchange failed", zap.String("user_id", user.ID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to authenticate with YouTube")
		return
	}

	channelID, channelTitle, err := h.youtube.Channel(r.Context(), tok)
	if err != nil {
		h.logger.Warn("Could not read YouTube channel", zap.String("user_id", user.ID), zap.Error(err))
		channelID, channelTitle = fallbackChannelID, fallbackChannelTitle
	}

	account := &models.YouTubeAccount{
		UserID:       user.ID,
		ChannelID:    channelID,
		ChannelTitle: channelTitle,
		AccessToken:  tok.AccessToken,
	}
	if tok.RefreshToken != "" {
		account.RefreshToken = &tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		account.ExpiresAt = &expiry
	}
	if err := h.store.UpsertYouTubeAccount(r.Context(), account); err != nil {
		h.writeError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "YouTube account connected",
		"accountId": account.ID,
	})
}

type youtubeStatus struct {
	Connected    bool       `json:"connected"`
	AuthURL      string     `json:"authUrl,omitempty"`
	AccountID    string     `json:"accountId,omitempty"`
	ChannelID    string     `json:"channelId,omitempty"`
	ChannelTitle string     `json:"channelTitle,omitempty"`
	ConnectedAt  *time.Time `json:"connectedAt,omitempty"`
}

func (h *Handlers) YouTubeStatus(w http.ResponseWriter, r *http.Request) {
	if !h.youtubeEnabled(w) {
		return
	}
	user := currentUser(r)

	account, err := h.store.GetYouTubeAccount(r.Context(), user.ID)
	if isNotFound(err) {
		respond.JSON(w, http.StatusOK, youtubeStatus{Connected: false, AuthURL: h.youtube.AuthURL(user.ID)})
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, youtubeStatus{
		Connected:    true,
		AccountID:    account.ID,
		ChannelID:    account.ChannelID,
		ChannelTitle: account.ChannelTitle,
		ConnectedAt:  &account.CreatedAt,
	})
}

func (h *Handlers) YouTubeDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteYouTubeAccount(r.Context(), currentUser(r).ID); err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "YouTube account disconnected"})
}

type youtubeUploadRequest struct {
	EpisodeID string `json:"episodeId"`
}

// YouTubeUpload queues an episode for publishing and answers 202.
func (h *Handlers) YouTubeUpload(w http.ResponseWriter, r *http.Request) {
	if !h.youtubeEnabled(w) {
		return
	}
	user := currentUser(r)

	var req youtubeUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.EpisodeID == "" {
		respond.Error(w, http.StatusBadRequest, "Episode ID required")
		return
	}

	episode, err := h.store.GetEpisodeWithPodcast(r.Context(), req.EpisodeID)
	if isNotFound(err) {
		respond.Error(w, http.StatusNotFound, "Episode not found")
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	if episode.PodcastUserID != user.ID {
		respond.Error(w, http.StatusForbidden, "Not authorized")
		return
	}

	if _, err := h.store.GetYouTubeAccount(r.Context(), user.ID); isNotFound(err) {
		respond.JSON(w, http.StatusBadRequest, map[string]string{
			"error":   "YouTube account not connected",
			"authUrl": h.youtube.AuthURL(user.ID),
		})
		return
	} else if err != nil {
		h.writeError(w, err)
		return
	}

	task, err := tasks.NewPublishEpisodeTask(episode.ID, user.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.store.UpdateEpisodeYouTubeStatus(r.Context(), episode.ID, models.YouTubeStatusPending); err != nil {
		h.writeError(w, err)
		return
	}
	if _, err := h.asynqClient.Enqueue(task); err != nil {
		h.logger.Error("Failed to enqueue publish task", zap.String("episode_id", episode.ID), zap.Error(err))
		// the hourly retry picks FAILED episodes up again
		if err := h.store.UpdateEpisodeYouTubeStatus(r.Context(), episode.ID, models.YouTubeStatusFailed); err != nil {
			h.logger.Warn("Failed to mark episode failed", zap.String("episode_id", episode.ID), zap.Error(err))
		}
		respond.Error(w, http.StatusInternalServerError, "Failed to upload to YouTube")
		return
	}

	respond.JSON(w, http.StatusAccepted, map[string]string{
		"status":    "processing",
		"message":   "Episode upload to YouTube started",
		"episodeId": episode.ID,
	})
}
