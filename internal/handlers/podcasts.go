package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"podhost/internal/db"
	"podhost/internal/models"
	"podhost/internal/respond"
	"podhost/internal/slug"
	"podhost/internal/urlnorm"
)

type podcastRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Slug        *string `json:"slug"`
	CoverURL    *string `json:"coverUrl"`
	CategoryID  *string `json:"categoryId"`
}

type podcastDetail struct {
	models.Podcast
	Episodes []models.Episode `json:"episodes"`
}

func (h *Handlers) ListPodcasts(w http.ResponseWriter, r *http.Request) {
	podcasts, err := h.store.ListPodcasts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]models.PodcastSummary, 0, len(podcasts))
	for _, p := range podcasts {
		p.Podcast = h.podcastView(p.Podcast)
		out = append(out, p)
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *Handlers) GetPodcast(w http.ResponseWriter, r *http.Request) {
	podcast, err := h.store.GetPodcastByID(r.Context(), mux.Vars(r)["id"])
	if isNotFound(err) {
		respond.Error(w, http.StatusNotFound, "Podcast not found")
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	episodes, err := h.store.ListEpisodesByPodcast(r.Context(), podcast.ID, 0)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, podcastDetail{Podcast: h.podcastView(*podcast), Episodes: h.episodeViews(episodes)})
}

func (h *Handlers) CreatePodcast(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var req podcastRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	title := strings.TrimSpace(deref(req.Title))
	if title == "" {
		respond.Error(w, http.StatusBadRequest, "Title is required")
		return
	}

	s := slug.Make(title)
	if req.Slug != nil && *req.Slug != "" {
		s = *req.Slug
	}
	if !slug.Valid(s) {
		respond.Error(w, http.StatusBadRequest, "Slug must contain only lowercase letters, digits and dashes")
		return
	}
	if slug.Reserved(s) {
		respond.Error(w, http.StatusConflict, "Podcast slug is reserved")
		return
	}
	if req.CoverURL != nil && *req.CoverURL != "" && !urlnorm.IsPlayable(*req.CoverURL) {
		respond.Error(w, http.StatusBadRequest, "coverUrl must be a relative path or an http(s) URL")
		return
	}
	categoryID, ok := h.categoryRef(w, r, req.CategoryID)
	if !ok {
		return
	}

	podcast := &models.Podcast{
		UserID:      user.ID,
		Title:       title,
		Description: emptyToNil(req.Description),
		Slug:        s,
		CoverURL:    h.normalizer.NormalizePtr(emptyToNil(req.CoverURL)),
		CategoryID:  categoryID,
	}
	err := h.store.CreatePodcast(r.Context(), podcast)
	if errors.Is(err, db.ErrConflict) {
		respond.Error(w, http.StatusConflict, "Podcast slug already exists")
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, h.podcastView(*podcast))
}

// ownedPodcast loads the podcast named in the route and checks that the
// current user owns it. It writes the response itself when it returns nil.
func (h *Handlers) ownedPodcast(w http.ResponseWriter, r *http.Request) *models.Podcast {
	podcast, err := h.store.GetPodcastByID(r.Context(), mux.Vars(r)["id"])
	if isNotFound(err) {
		respond.Error(w, http.StatusNotFound, "Podcast not found")
		return nil
	}
	if err != nil {
		h.writeError(w, err)
		return nil
	}
	if podcast.UserID != currentUser(r).ID {
		respond.Error(w, http.StatusForbidden, "Not authorized")
		return nil
	}
	return podcast
}

func (h *Handlers) UpdatePodcast(w http.ResponseWriter, r *http.Request) {
	podcast := h.ownedPodcast(w, r)
	if podcast == nil {
		return
	}

	var req podcastRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			respond.Error(w, http.StatusBadRequest, "Title is required")
			return
		}
		podcast.Title = title
	}
	if req.Description != nil {
		podcast.Description = emptyToNil(req.Description)
	}
	if req.CoverURL != nil {
		if *req.CoverURL != "" && !urlnorm.IsPlayable(*req.CoverURL) {
			respond.Error(w, http.StatusBadRequest, "coverUrl must be a relative path or an http(s) URL")
			return
		}
		podcast.CoverURL = h.normalizer.NormalizePtr(emptyToNil(req.CoverURL))
	}
	if req.CategoryID != nil {
		categoryID, ok := h.categoryRef(w, r, req.CategoryID)
		if !ok {
			return
		}
		podcast.CategoryID = categoryID
	}
	if req.Slug != nil && *req.Slug != podcast.Slug {
		if !slug.Valid(*req.Slug) {
			respond.Error(w, http.StatusBadRequest, "Slug must contain only lowercase letters, digits and dashes")
			return
		}
		if slug.Reserved(*req.Slug) {
			respond.Error(w, http.StatusConflict, "Podcast slug is reserved")
			return
		}
		published, err := h.store.ListEpisodesByPodcast(r.Context(), podcast.ID, 1)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if len(published) > 0 {
			respond.Error(w, http.StatusConflict, "Slug cannot change once episodes are published")
			return
		}
		podcast.Slug = *req.Slug
	}

	err := h.store.UpdatePodcast(r.Context(), podcast)
	if errors.Is(err, db.ErrConflict) {
		respond.Error(w, http.StatusConflict, "Podcast slug already exists")
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, h.podcastView(*podcast))
}

func (h *Handlers) DeletePodcast(w http.ResponseWriter, r *http.Request) {
	podcast := h.ownedPodcast(w, r)
	if podcast == nil {
		return
	}
	if err := h.store.DeletePodcast(r.Context(), podcast.ID); err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
