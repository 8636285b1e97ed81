package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/homefront-realty/admin-backoffice/internal/store"
)

// Connectivity reports whether a dependency connection is up.
type Connectivity interface {
	IsConnected() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo store.Repository
	bus  Connectivity
}

// NewHealthHandler creates a new health handler. bus may be nil when realtime runs
// in-process.
func NewHealthHandler(repo store.Repository, bus Connectivity) *HealthHandler {
	return &HealthHandler{
		repo: repo,
		bus:  bus,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.repo.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database unreachable",
		})
		return
	}

	if h.bus != nil && !h.bus.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ready",
		"capabilities": h.repo.Capabilities(),
	})
}
