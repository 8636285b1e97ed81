// Package handler provides HTTP handlers for the admin API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homefront-realty/admin-backoffice/internal/middleware"
	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/query"
	"github.com/homefront-realty/admin-backoffice/internal/service"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service   *service.ConversationService
	summaries *service.SummaryService
	logger    *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, summaries *service.SummaryService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service:   svc,
		summaries: summaries,
		logger:    log,
	}
}

// List handles GET /admin/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, page, limit, err := query.ParseParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.List(r.Context(), filters, page, limit)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list conversations")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Search handles GET /admin/search
func (h *ConversationHandler) Search(w http.ResponseWriter, r *http.Request) {
	filters, page, limit, err := query.ParseParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Search(r.Context(), filters.Query, filters, page, limit)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to search conversations")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /admin/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.Get(r.Context(), conversationID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get conversation")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Update handles PATCH /admin/conversations/{id}
func (h *ConversationHandler) Update(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch model.ConversationPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.Notes != nil {
		if err := middleware.ValidateNote(*patch.Notes); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	conv, err := h.service.Update(r.Context(), conversationID, patch)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update conversation")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Delete handles DELETE /admin/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Delete(r.Context(), conversationID); err != nil {
		writeServiceError(w, h.logger, err, "failed to delete conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BulkUpdateRequest is the body of POST /admin/conversations/bulk-update.
type BulkUpdateRequest struct {
	IDs   []string                `json:"ids"`
	Patch model.ConversationPatch `json:"patch"`
	Note  string                  `json:"note,omitempty"`
}

// BulkDeleteRequest is the body of POST /admin/conversations/bulk-delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// bulkResponse reports progress. Error is set when the run stopped early; rows before
// the failure stay applied.
type bulkResponse struct {
	Applied int    `json:"applied"`
	Total   int    `json:"total"`
	Error   string `json:"error,omitempty"`
}

// BulkUpdate handles POST /admin/conversations/bulk-update
func (h *ConversationHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req BulkUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateIDs(req.IDs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateNote(req.Note); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.service.BulkUpdate(r.Context(), req.IDs, req.Patch, req.Note)
	h.writeBulk(w, res, len(req.IDs), err)
}

// BulkDelete handles POST /admin/conversations/bulk-delete
func (h *ConversationHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateIDs(req.IDs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.service.BulkDelete(r.Context(), req.IDs)
	h.writeBulk(w, res, len(req.IDs), err)
}

// writeBulk answers 200 when every row was applied. A run that stopped early answers
// with the status of the failure and the progress made before it.
func (h *ConversationHandler) writeBulk(w http.ResponseWriter, res service.BulkResult, total int, err error) {
	body := bulkResponse{Applied: res.Applied, Total: total}
	if err == nil {
		writeJSON(w, http.StatusOK, body)
		return
	}

	status, message := serviceError(h.logger, err, "bulk operation failed")
	body.Error = message
	if status != http.StatusInternalServerError {
		body.Error = err.Error()
	}
	writeJSON(w, status, body)
}

// Summarize handles POST /admin/conversations/{id}/summary
func (h *ConversationHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.summaries.Generate(r.Context(), conversationID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to summarize conversation")
		return
	}

	writeJSON(w, http.StatusCreated, summary)
}
