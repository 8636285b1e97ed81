package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homefront-realty/admin-backoffice/internal/middleware"
	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/service"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

// FollowUpHandler handles follow-up task endpoints.
type FollowUpHandler struct {
	service *service.FollowUpService
	logger  *logger.Logger
}

// NewFollowUpHandler creates a new follow-up handler.
func NewFollowUpHandler(svc *service.FollowUpService, log *logger.Logger) *FollowUpHandler {
	return &FollowUpHandler{service: svc, logger: log}
}

// List handles GET /admin/conversations/{id}/follow-ups
func (h *FollowUpHandler) List(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tasks, err := h.service.List(r.Context(), conversationID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list follow-ups")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": tasks})
}

// Schedule handles POST /admin/conversations/{id}/follow-ups
func (h *FollowUpHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.CreateFollowUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateNote(req.Notes); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.service.Schedule(r.Context(), conversationID, &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to schedule follow-up")
		return
	}

	writeJSON(w, http.StatusCreated, task)
}
