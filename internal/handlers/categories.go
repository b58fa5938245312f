package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"podhost/internal/db"
	"podhost/internal/models"
	"podhost/internal/respond"
)

const maxCategoryName = 50

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type categoryRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

// validate checks the fields that are present. Name is required when
// requireName is set.
func (req categoryRequest) validate(requireName bool) string {
	if req.Name != nil || requireName {
		n := utf8.RuneCountInString(strings.TrimSpace(deref(req.Name)))
		if n == 0 || n > maxCategoryName {
			return "Name must be between 1 and 50 characters"
		}
	}
	if req.Color != nil && !colorPattern.MatchString(*req.Color) {
		return "Color must be a hex value like #3b82f6"
	}
	return ""
}

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, categories)
}

func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if msg := req.validate(true); msg != "" {
		respond.Error(w, http.StatusBadRequest, msg)
		return
	}

	category := &models.Category{Name: strings.TrimSpace(*req.Name), Color: models.DefaultCategoryColor}
	if req.Color != nil {
		category.Color = *req.Color
	}
	err := h.store.CreateCategory(r.Context(), category)
	if errors.Is(err, db.ErrConflict) {
		respond.Error(w, http.StatusBadRequest, "Category already exists")
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, category)
}

func (h *Handlers) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.store.GetCategory(r.Context(), mux.Vars(r)["id"])
	if isNotFound(err) {
		respond.Error(w, http.StatusNotFound, "Category not found")
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if msg := req.validate(false); msg != "" {
		respond.Error(w, http.StatusBadRequest, msg)
		return
	}
	if req.Name != nil {
		category.Name = strings.TrimSpace(*req.Name)
	}
	if req.Color != nil {
		category.Color = *req.Color
	}

	err = h.store.UpdateCategory(r.Context(), category)
	switch {
	case errors.Is(err, db.ErrConflict):
		respond.Error(w, http.StatusBadRequest, "Category already exists")
	case isNotFound(err):
		respond.Error(w, http.StatusNotFound, "Category not found")
	case err != nil:
		h.writeError(w, err)
	default:
		respond.JSON(w, http.StatusOK, category)
	}
}

// DeleteCategory removes the category. Podcasts filed under it are kept
// and become uncategorised.
func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteCategory(r.Context(), mux.Vars(r)["id"])
	if isNotFound(err) {
		respond.Error(w, http.StatusNotFound, "Category not found")
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Category deleted successfully"})
}

// categoryRef resolves a categoryId from a podcast request. An absent or
// empty id yields nil. It writes the response itself when ok is false.
func (h *Handlers) categoryRef(w http.ResponseWriter, r *http.Request, id *string) (*string, bool) {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil, true
	}
	category, err := h.store.GetCategory(r.Context(), strings.TrimSpace(*id))
	if isNotFound(err) {
		respond.Error(w, http.StatusBadRequest, "Category not found")
		return nil, false
	}
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return &category.ID, true
}
