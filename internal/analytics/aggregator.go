package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
	"github.com/homefront-realty/admin-backoffice/pkg/metrics"
)

// Source produces a snapshot for a date range. Both the admin API client and the
// store repositories implement it.
type Source interface {
	Analytics(ctx context.Context, from, to time.Time) (model.AnalyticsSnapshot, error)
}

// Aggregator reads snapshots from the first source that answers, caching the result.
type Aggregator struct {
	sources []Source
	cache   *Cache
	logger  *logger.Logger
}

// NewAggregator creates an aggregator. Nil sources are skipped; cache may be nil.
func NewAggregator(cache *Cache, log *logger.Logger, sources ...Source) *Aggregator {
	a := &Aggregator{cache: cache, logger: log}
	for _, s := range sources {
		if s != nil {
			a.sources = append(a.sources, s)
		}
	}
	return a
}

// Snapshot returns the snapshot for [from, to] with defaults applied. A zero to means
// now; a zero from means 30 days before to.
func (a *Aggregator) Snapshot(ctx context.Context, from, to time.Time) (model.AnalyticsSnapshot, error) {
	from, to = Range(from, to, time.Now())

	if a.cache != nil {
		s, ok, err := a.cache.Get(ctx, from, to)
		switch {
		case err != nil:
			metrics.AnalyticsCache.WithLabelValues("error").Inc()
			a.logger.Warn("analytics cache read failed", zap.Error(err))
		case ok:
			metrics.AnalyticsCache.WithLabelValues("hit").Inc()
			return WithDefaults(s), nil
		default:
			metrics.AnalyticsCache.WithLabelValues("miss").Inc()
		}
	}

	var errs error
	for i, src := range a.sources {
		s, err := src.Analytics(ctx, from, to)
		if err != nil {
			errs = multierr.Append(errs, err)
			a.logger.Warn("analytics source failed", zap.Int("source", i), zap.Error(err))
			continue
		}

		s.From, s.To = from, to
		s = WithDefaults(s)
		if a.cache != nil {
			if err := a.cache.Set(ctx, s); err != nil {
				a.logger.Warn("analytics cache write failed", zap.Error(err))
			}
		}
		return s, nil
	}

	if errs == nil {
		return WithDefaults(model.AnalyticsSnapshot{From: from, To: to}), nil
	}
	return model.AnalyticsSnapshot{}, fmt.Errorf("failed to load analytics: %w", errs)
}

// Invalidate drops every cached snapshot. Failures are logged; the entries then expire
// with their TTL.
func (a *Aggregator) Invalidate(ctx context.Context) {
	if a == nil || a.cache == nil {
		return
	}
	if err := a.cache.Invalidate(ctx); err != nil {
		a.logger.Warn("analytics cache invalidation failed", zap.Error(err))
	}
}

// openRangeStep aligns an open upper bound so repeated default requests share a cache
// entry.
const openRangeStep = time.Minute

// Range resolves open bounds: a zero to is now, truncated to the minute, and a zero
// from is 30 days before to. Reversed bounds are swapped.
func Range(from, to, now time.Time) (time.Time, time.Time) {
	if to.IsZero() {
		to = now.UTC().Truncate(openRangeStep)
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if from.After(to) {
		from, to = to, from
	}
	return from.UTC().Truncate(time.Second), to.UTC().Truncate(time.Second)
}
