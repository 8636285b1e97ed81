package controller

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/source"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

// ErrSuperseded is returned by a refresh whose result was discarded because a newer
// refresh started before it finished.
var ErrSuperseded = errors.New("superseded by a newer request")

// Fetcher loads one page. *source.Chain implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req source.Request) (*source.Result, error)
}

// Controller drives fetches for one list view. The newest trigger always wins: starting a
// refresh cancels the one in flight and results of superseded refreshes are dropped.
type Controller struct {
	fetcher  Fetcher
	logger   *logger.Logger
	onChange func(State)

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
}

// New creates a controller in the idle state.
func New(fetcher Fetcher, log *logger.Logger) *Controller {
	return &Controller{
		fetcher: fetcher,
		logger:  log,
		state:   NewState(),
	}
}

// OnChange registers fn to receive every state change. It is called with the
// controller lock held and must not call back into the controller.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetFilters applies new filters and refreshes.
func (c *Controller) SetFilters(ctx context.Context, f model.SearchFilters) (State, error) {
	return c.update(ctx, func(s State) State { return s.SetFilters(f) })
}

// SetSort applies a new sort key and refreshes.
func (c *Controller) SetSort(ctx context.Context, k model.SortKey) (State, error) {
	return c.update(ctx, func(s State) State { return s.SetSort(k) })
}

// SetPage moves to page p and refreshes.
func (c *Controller) SetPage(ctx context.Context, p int) (State, error) {
	return c.update(ctx, func(s State) State { return s.SetPage(p) })
}

// SetPageSize applies a new page size and refreshes.
func (c *Controller) SetPageSize(ctx context.Context, n int) (State, error) {
	return c.update(ctx, func(s State) State { return s.SetPageSize(n) })
}

// Refresh re-fetches the current view.
func (c *Controller) Refresh(ctx context.Context) (State, error) {
	return c.update(ctx, nil)
}

// ApplyInsert merges a realtime insert into the view. OnChange only fires when the
// view changed.
func (c *Controller) ApplyInsert(conv model.Conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if next := c.state.ApplyInsert(conv); next.changedFrom(c.state) {
		c.set(next)
	}
}

// ApplyUpdate merges a realtime update into the view. OnChange only fires when the
// view changed.
func (c *Controller) ApplyUpdate(conv model.Conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if next := c.state.ApplyUpdate(conv); next.changedFrom(c.state) {
		c.set(next)
	}
}

// Close cancels any fetch in flight.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) update(ctx context.Context, transition func(State) State) (State, error) {
	c.mu.Lock()
	if transition != nil {
		c.state = transition(c.state)
	}
	c.gen++
	gen := c.gen
	if c.cancel != nil {
		c.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	c.set(c.state.Loading())
	req := source.Request{Filters: c.state.Filters, Page: c.state.Page, PageSize: c.state.PageSize}
	c.mu.Unlock()

	res, err := c.fetcher.Fetch(fetchCtx, req)

	c.mu.Lock()
	if gen != c.gen {
		c.logger.Debug("discarding superseded list response", zap.Uint64("generation", gen))
		s := c.state
		c.mu.Unlock()
		return s, ErrSuperseded
	}
	c.cancel = nil

	if err != nil {
		c.set(c.state.Failed(err))
		s := c.state
		c.mu.Unlock()
		return s, err
	}
	c.set(c.state.Loaded(res.Data, res.Total, res.Source))
	s := c.state
	c.mu.Unlock()

	if s.Stale() {
		c.logger.Debug("page out of range after refresh, loading last page",
			zap.Int("requested", req.Page), zap.Int("page", s.Page))
		return c.update(ctx, nil)
	}
	return s, nil
}

func (c *Controller) set(s State) {
	c.state = s
	if c.onChange != nil {
		c.onChange(s)
	}
}
