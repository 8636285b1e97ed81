package export

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/query"
	"github.com/homefront-realty/admin-backoffice/internal/source"
)

const (
	// DefaultMaxRows bounds the rows collected for one export.
	DefaultMaxRows = 10000

	collectPageSize    = query.MaxPageSize
	collectConcurrency = 4
)

// Fetcher loads one page. *source.Chain implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req source.Request) (*source.Result, error)
}

// Collect gathers the whole filtered set, not just one page, up to maxRows. The first
// page reveals the total; remaining pages are fetched in parallel and reassembled in
// page order. Any page failure fails the whole collection.
func Collect(ctx context.Context, fetcher Fetcher, f model.SearchFilters, maxRows int) ([]model.Conversation, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	first, err := fetcher.Fetch(ctx, source.Request{Filters: f, Page: 1, PageSize: collectPageSize})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page 1: %w", err)
	}

	want := min(first.Total, maxRows)
	pages := (want + collectPageSize - 1) / collectPageSize
	if pages <= 1 {
		return truncate(first.Data, maxRows), nil
	}

	results := make([][]model.Conversation, pages)
	results[0] = first.Data

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(collectConcurrency)
	for p := 2; p <= pages; p++ {
		p := p
		g.Go(func() error {
			res, err := fetcher.Fetch(gctx, source.Request{Filters: f, Page: p, PageSize: collectPageSize})
			if err != nil {
				return fmt.Errorf("failed to fetch page %d: %w", p, err)
			}
			results[p-1] = res.Data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.Conversation, 0, want)
	seen := make(map[string]bool, want)
	for _, page := range results {
		for _, c := range page {
			// rows shift between pages when data changes mid-export
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
		}
	}
	return truncate(out, maxRows), nil
}

func truncate(rows []model.Conversation, n int) []model.Conversation {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
