package handlers

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/gorilla/mux"

	"podhost/internal/media"
	"podhost/internal/respond"
)

type presignRequest struct {
	Filename string `json:"filename"`
}

type presignResponse struct {
	URL       string `json:"url"`
	ObjectKey string `json:"objectKey"`
}

// PresignUpload hands out a fresh object key and the URL to PUT it to.
func (h *Handlers) PresignUpload(w http.ResponseWriter, r *http.Request) {
	var req presignRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	name := path.Base(strings.ReplaceAll(strings.TrimSpace(req.Filename), `\`, "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		respond.Error(w, http.StatusBadRequest, "Filename required")
		return
	}

	key := fmt.Sprintf("%d-%s", h.now().UnixMilli(), name)
	respond.JSON(w, http.StatusOK, presignResponse{URL: media.URLPath(key), ObjectKey: key})
}

func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	h.media.Get(w, r, mux.Vars(r)["key"])
}

func (h *Handlers) HeadFile(w http.ResponseWriter, r *http.Request) {
	h.media.Head(w, r, mux.Vars(r)["key"])
}

func (h *Handlers) OptionsFile(w http.ResponseWriter, r *http.Request) {
	h.media.Options(w, r)
}

func (h *Handlers) PutFile(w http.ResponseWriter, r *http.Request) {
	h.media.Put(w, r, mux.Vars(r)["key"])
}
