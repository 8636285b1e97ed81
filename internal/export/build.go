package export

import (
	"context"
	"time"

	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/pkg/metrics"
)

// Artifact is a rendered export ready to download or upload.
type Artifact struct {
	Filename string
	Format   Format
	Rows     int
	Data     []byte
}

// Build collects every row matching f and renders it in format.
func Build(ctx context.Context, fetcher Fetcher, f model.SearchFilters, format Format, maxRows int, now time.Time) (*Artifact, error) {
	rows, err := Collect(ctx, fetcher, f, maxRows)
	if err != nil {
		metrics.RecordExport(string(format), 0, err)
		return nil, err
	}

	data, err := Render(format, rows, now)
	metrics.RecordExport(string(format), len(rows), err)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Filename: Filename(format, now),
		Format:   format,
		Rows:     len(rows),
		Data:     data,
	}, nil
}
