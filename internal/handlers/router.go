package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"podhost/internal/media"
	"podhost/internal/respond"
)

// Middleware is the set of wrappers the router applies per route group.
// Nil entries are skipped.
type Middleware struct {
	Auth func(http.Handler) http.Handler
	// RateLimit guards play tracking and uploads.
	RateLimit func(http.Handler) http.Handler
}

func chain(h http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
	var out http.Handler = h
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			out = mws[i](out)
		}
	}
	return out
}

// Router wires every endpoint. Object keys may contain "/" and must reach
// the media server unaltered, so path cleaning is disabled.
func (h *Handlers) Router(mw Middleware) *mux.Router {
	r := mux.NewRouter().SkipClean(true)
	auth, limit := mw.Auth, mw.RateLimit

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// all.xml is registered before the slug pattern so it is never taken
	// for a podcast named "all".
	r.HandleFunc("/feeds/all.xml", h.GetCatalogFeed).Methods(http.MethodGet)
	r.HandleFunc("/feeds/{slug}.xml", h.GetPodcastFeed).Methods(http.MethodGet)
	r.HandleFunc("/feeds/{slug}", h.GetFeedInfo).Methods(http.MethodGet)

	r.HandleFunc("/podcasts", h.ListPodcasts).Methods(http.MethodGet)
	r.Handle("/podcasts", chain(h.CreatePodcast, auth)).Methods(http.MethodPost)
	r.HandleFunc("/podcasts/{id}", h.GetPodcast).Methods(http.MethodGet)
	r.Handle("/podcasts/{id}", chain(h.UpdatePodcast, auth)).Methods(http.MethodPut)
	r.Handle("/podcasts/{id}", chain(h.DeletePodcast, auth)).Methods(http.MethodDelete)

	r.HandleFunc("/categories", h.ListCategories).Methods(http.MethodGet)
	r.Handle("/categories", chain(h.CreateCategory, auth)).Methods(http.MethodPost)
	r.Handle("/categories/{id}", chain(h.UpdateCategory, auth)).Methods(http.MethodPut)
	r.Handle("/categories/{id}", chain(h.DeleteCategory, auth)).Methods(http.MethodDelete)

	r.HandleFunc("/episodes", h.ListEpisodes).Methods(http.MethodGet)
	r.Handle("/episodes", chain(h.CreateEpisode, auth)).Methods(http.MethodPost)
	r.HandleFunc("/episodes/{id}", h.GetEpisode).Methods(http.MethodGet)
	r.Handle("/episodes/{id}", chain(h.DeleteEpisode, auth)).Methods(http.MethodDelete)

	r.Handle("/uploads/presign", chain(h.PresignUpload, auth, limit)).Methods(http.MethodPost)
	files := media.FilePathPrefix + "{key:.+}"
	r.HandleFunc(files, h.GetFile).Methods(http.MethodGet)
	r.HandleFunc(files, h.HeadFile).Methods(http.MethodHead)
	r.HandleFunc(files, h.OptionsFile).Methods(http.MethodOptions)
	r.Handle(files, chain(h.PutFile, limit)).Methods(http.MethodPut)

	r.Handle("/play/{episodeId}", chain(h.Play, limit)).Methods(http.MethodGet)

	r.Handle("/api/dashboard/overview", chain(h.DashboardOverview, auth)).Methods(http.MethodGet)

	r.Handle("/api/youtube/auth", chain(h.YouTubeAuth, auth)).Methods(http.MethodGet)
	r.Handle("/api/youtube/callback", chain(h.YouTubeCallback, auth)).Methods(http.MethodGet)
	r.Handle("/api/youtube/status", chain(h.YouTubeStatus, auth)).Methods(http.MethodGet)
	r.Handle("/api/youtube/disconnect", chain(h.YouTubeDisconnect, auth)).Methods(http.MethodDelete)
	r.Handle("/api/youtube/upload", chain(h.YouTubeUpload, auth)).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond.Error(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}
