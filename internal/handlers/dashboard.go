package handlers

import (
	"net/http"

	"podhost/internal/respond"
)

const dashboardDays = 30

func (h *Handlers) DashboardOverview(w http.ResponseWriter, r *http.Request) {
	since := h.now().AddDate(0, 0, -(dashboardDays - 1))

	overview, err := h.store.DashboardOverview(r.Context(), currentUser(r).ID, since)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, overview)
}
