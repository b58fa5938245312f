package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"podhost/internal/respond"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("Health check failed", zap.Error(err))
		respond.JSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Timestamp: h.now()})
		return
	}
	respond.JSON(w, http.StatusOK, healthResponse{Status: "ok", Timestamp: h.now()})
}
