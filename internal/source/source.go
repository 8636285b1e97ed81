// Package source fetches conversation pages from the admin API or the database, trying
// each data source in order until one succeeds.
package source

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/query"
	"github.com/homefront-realty/admin-backoffice/internal/store"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
	"github.com/homefront-realty/admin-backoffice/pkg/metrics"
	"github.com/homefront-realty/admin-backoffice/pkg/tracing"
)

// Source names.
const (
	SourceAPI      = "api"
	SourceDatabase = "database"
)

// ErrNoStrategies is returned by an empty chain.
var ErrNoStrategies = errors.New("no data sources configured")

// Request selects one page of a filtered conversation list.
type Request struct {
	Filters  model.SearchFilters
	Page     int
	PageSize int
}

// Result is one page and the size of the whole filtered set.
type Result struct {
	Data   []model.Conversation
	Total  int
	Source string
}

// Strategy is one way of fetching a page.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, req Request) (*Result, error)
}

// Lister is the part of the admin API client the API strategy needs.
type Lister interface {
	ListConversations(ctx context.Context, f model.SearchFilters, page, limit int) ([]model.Conversation, int, error)
}

// APIStrategy fetches from the admin API.
type APIStrategy struct {
	client Lister
}

// NewAPIStrategy creates an API strategy.
func NewAPIStrategy(client Lister) *APIStrategy {
	return &APIStrategy{client: client}
}

// Name implements Strategy.
func (s *APIStrategy) Name() string { return SourceAPI }

// Fetch implements Strategy.
func (s *APIStrategy) Fetch(ctx context.Context, req Request) (*Result, error) {
	data, total, err := s.client.ListConversations(ctx, req.Filters, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, Total: total, Source: SourceAPI}, nil
}

// DBStrategy queries the database directly with the same filters.
type DBStrategy struct {
	repo store.Repository
}

// NewDBStrategy creates a database strategy.
func NewDBStrategy(repo store.Repository) *DBStrategy {
	return &DBStrategy{repo: repo}
}

// Name implements Strategy.
func (s *DBStrategy) Name() string { return SourceDatabase }

// Fetch implements Strategy.
func (s *DBStrategy) Fetch(ctx context.Context, req Request) (*Result, error) {
	data, total, err := s.repo.ListConversations(ctx, query.Build(req.Filters), req.PageSize, query.Offset(req.Page, req.PageSize))
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, Total: total, Source: SourceDatabase}, nil
}

// Chain tries strategies in order and returns the first success.
type Chain struct {
	strategies []Strategy
	logger     *logger.Logger
}

// NewChain creates a chain. Nil strategies are skipped.
func NewChain(log *logger.Logger, strategies ...Strategy) *Chain {
	c := &Chain{logger: log}
	for _, s := range strategies {
		if s != nil {
			c.strategies = append(c.strategies, s)
		}
	}
	return c
}

// Fetch runs the chain. If every strategy fails the returned error combines all of
// their errors.
func (c *Chain) Fetch(ctx context.Context, req Request) (*Result, error) {
	if len(c.strategies) == 0 {
		return nil, ErrNoStrategies
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = query.DefaultPageSize
	}

	var errs error
	for i, s := range c.strategies {
		res, err := c.attempt(ctx, s, req)
		if err == nil {
			if i > 0 {
				metrics.SourceFallbacks.WithLabelValues(s.Name()).Inc()
				c.logger.Info("served by fallback data source", zap.String("source", s.Name()))
			}
			return res, nil
		}

		errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		if ctx.Err() != nil {
			return nil, errs
		}
		c.logger.Warn("data source failed",
			zap.String("source", s.Name()),
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
	}
	return nil, fmt.Errorf("all data sources failed: %w", errs)
}

func (c *Chain) attempt(ctx context.Context, s Strategy, req Request) (*Result, error) {
	ctx, span := tracing.Tracer("source").Start(ctx, "source.fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", s.Name()),
		attribute.Int("page", req.Page),
		attribute.Int("page_size", req.PageSize),
	)

	res, err := s.Fetch(ctx, req)
	metrics.RecordSourceAttempt(s.Name(), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("total", res.Total))
	return res, nil
}
