package handler

import (
	"net/http"

	"github.com/homefront-realty/admin-backoffice/internal/analytics"
	"github.com/homefront-realty/admin-backoffice/internal/query"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

// AnalyticsHandler serves dashboard snapshots.
type AnalyticsHandler struct {
	aggregator *analytics.Aggregator
	logger     *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(agg *analytics.Aggregator, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{aggregator: agg, logger: log}
}

// Snapshot handles GET /admin/analytics?from&to
func (h *AnalyticsHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	from, err := query.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from: "+err.Error())
		return
	}
	to, err := query.ParseDateEnd(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to: "+err.Error())
		return
	}

	snap, err := h.aggregator.Snapshot(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load analytics")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}
