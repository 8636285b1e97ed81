package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/export"
	"github.com/homefront-realty/admin-backoffice/internal/middleware"
	"github.com/homefront-realty/admin-backoffice/internal/query"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

// ExportHandler renders filtered conversation sets as downloadable files.
type ExportHandler struct {
	fetcher  export.Fetcher
	uploader *export.Uploader
	maxRows  int
	logger   *logger.Logger
	now      func() time.Time
}

// NewExportHandler creates a new export handler. uploader may be nil.
func NewExportHandler(fetcher export.Fetcher, uploader *export.Uploader, maxRows int, log *logger.Logger) *ExportHandler {
	return &ExportHandler{
		fetcher:  fetcher,
		uploader: uploader,
		maxRows:  maxRows,
		logger:   log,
		now:      time.Now,
	}
}

// Export handles GET /admin/conversations/export?format=csv|xlsx|pdf|html
// With upload=true the artifact is stored in the export bucket and its key returned.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rawFormat := q.Get("format")
	if rawFormat == "" {
		rawFormat = string(export.FormatCSV)
	}
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filters, _, _, err := query.ParseParams(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	upload := q.Get("upload") == "true"
	if upload && h.uploader == nil {
		writeError(w, http.StatusNotImplemented, "export uploads are not configured")
		return
	}

	artifact, err := export.Build(r.Context(), h.fetcher, filters, format, h.maxRows, h.now())
	if err != nil {
		h.logger.Error("export failed",
			zap.String("format", string(format)),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to export conversations")
		return
	}

	if upload {
		key, err := h.uploader.Upload(r.Context(), artifact.Filename, format, artifact.Data)
		if err != nil {
			writeError(w, http.StatusBadGateway, "failed to upload export")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"key":      key,
			"filename": artifact.Filename,
			"rows":     artifact.Rows,
		})
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.Header().Set("X-Export-Rows", strconv.Itoa(artifact.Rows))
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Data)
}
