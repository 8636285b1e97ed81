package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/export"
	"github.com/homefront-realty/admin-backoffice/internal/service"
	"github.com/homefront-realty/admin-backoffice/internal/store"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps service and store errors onto HTTP statuses. Unexpected
// errors are logged and reported with fallback as the message.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error, fallback string) {
	status, message := serviceError(log, err, fallback)
	writeError(w, status, message)
}

// serviceError returns the HTTP status and client message for err.
func serviceError(log *logger.Logger, err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "conversation not found"
	case errors.Is(err, store.ErrFeatureUnavailable):
		return http.StatusNotImplemented, err.Error()
	}
	log.Error(fallback, zap.Error(err))
	return http.StatusInternalServerError, fallback
}

// decodeJSON decodes a bounded request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return errors.New("request body is empty")
	}
	return err
}
