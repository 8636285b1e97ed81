package controller

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/source"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

type fetchFunc func(ctx context.Context, req source.Request) (*source.Result, error)

func (f fetchFunc) Fetch(ctx context.Context, req source.Request) (*source.Result, error) {
	return f(ctx, req)
}

func page(total int, ids ...string) *source.Result {
	res := &source.Result{Total: total, Source: source.SourceDatabase}
	for _, id := range ids {
		res.Data = append(res.Data, model.Conversation{ID: id})
	}
	return res
}

func dataIDs(s State) []string {
	out := make([]string, len(s.Data))
	for i, c := range s.Data {
		out[i] = c.ID
	}
	return out
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total, size, want int
	}{
		{0, 20, 1},
		{-5, 20, 1},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{100, 7, 15},
		{10, 0, 10},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TotalPages(tc.total, tc.size), "total=%d size=%d", tc.total, tc.size)
	}
}

func TestState_PageClamp(t *testing.T) {
	s := NewState().Loaded(nil, 45, source.SourceAPI)
	assert.Equal(t, 3, s.TotalPages())

	assert.Equal(t, 3, s.SetPage(99).Page)
	assert.Equal(t, 1, s.SetPage(0).Page)
	assert.Equal(t, 1, s.SetPage(-4).Page)
	assert.Equal(t, 2, s.SetPage(2).Page)

	shrunk := s.SetPage(3).Loaded(nil, 10, source.SourceAPI)
	assert.Equal(t, 1, shrunk.Page)
}

func TestState_ShrunkTotalDropsStaleRows(t *testing.T) {
	s := NewState().SetPageSize(10).Loaded(nil, 100, source.SourceAPI).SetPage(10)
	s = s.Loaded([]model.Conversation{{ID: "c91"}}, 15, source.SourceAPI)

	assert.Equal(t, 2, s.Page)
	assert.Empty(t, s.Data)
	assert.True(t, s.Stale())
}

func TestController_RefetchesClampedPage(t *testing.T) {
	var pages []int
	total := 100
	ctl := New(fetchFunc(func(ctx context.Context, req source.Request) (*source.Result, error) {
		pages = append(pages, req.Page)
		if req.Page > TotalPages(total, req.PageSize) {
			return page(total), nil
		}
		ids := make([]string, 0, req.PageSize)
		for i := (req.Page - 1) * req.PageSize; i < total && len(ids) < req.PageSize; i++ {
			ids = append(ids, fmt.Sprintf("c%d", i))
		}
		return page(total, ids...), nil
	}), logger.NewNop())
	ctx := context.Background()

	_, err := ctl.SetPageSize(ctx, 10)
	require.NoError(t, err)
	s, err := ctl.SetPage(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 10, s.Page)
	require.Len(t, s.Data, 10)

	total = 15
	s, err = ctl.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 10, 10, 2}, pages)
	assert.Equal(t, StatusLoaded, s.Status)
	assert.Equal(t, 2, s.Page)
	assert.Equal(t, 2, s.TotalPages())
	assert.Equal(t, 15, s.Total)
	assert.Equal(t, []string{"c10", "c11", "c12", "c13", "c14"}, dataIDs(s))
}

func TestState_ResetsPage(t *testing.T) {
	s := NewState().Loaded(nil, 200, source.SourceAPI).SetPage(4)
	require.Equal(t, 4, s.Page)

	assert.Equal(t, 1, s.SetPageSize(50).Page)
	assert.Equal(t, 1, s.SetSort(model.SortHot).Page)
	assert.Equal(t, 1, s.SetFilters(model.SearchFilters{Query: "ava"}).Page)

	kept := s.SetSort(model.SortCold).SetFilters(model.SearchFilters{Query: "ava"})
	assert.Equal(t, model.SortCold, kept.Filters.Sort)

	assert.Equal(t, 100, s.SetPageSize(1000).PageSize)
	assert.Equal(t, 20, s.SetPageSize(0).PageSize)
}

func TestState_FailedKeepsData(t *testing.T) {
	s := NewState().Loaded([]model.Conversation{{ID: "c1"}}, 1, source.SourceAPI)
	failed := s.Loading().Failed(errors.New("db down"))

	assert.Equal(t, StatusErrored, failed.Status)
	assert.Equal(t, []string{"c1"}, dataIDs(failed))
	assert.Equal(t, 1, failed.Total)
	assert.EqualError(t, failed.Err, "db down")
}

func TestController_LastRequestWins(t *testing.T) {
	startedA := make(chan struct{})
	releaseA := make(chan struct{})

	ctl := New(fetchFunc(func(ctx context.Context, req source.Request) (*source.Result, error) {
		if req.Filters.Query == "a" {
			close(startedA)
			<-releaseA
			return page(1, "from-a"), nil
		}
		return page(1, "from-b"), nil
	}), logger.NewNop())

	errA := make(chan error, 1)
	go func() {
		_, err := ctl.SetFilters(context.Background(), model.SearchFilters{Query: "a"})
		errA <- err
	}()
	<-startedA

	stateB, err := ctl.SetFilters(context.Background(), model.SearchFilters{Query: "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"from-b"}, dataIDs(stateB))

	close(releaseA)
	assert.ErrorIs(t, <-errA, ErrSuperseded)

	final := ctl.State()
	assert.Equal(t, StatusLoaded, final.Status)
	assert.Equal(t, "b", final.Filters.Query)
	assert.Equal(t, []string{"from-b"}, dataIDs(final))
}

func TestController_NewRequestCancelsInFlight(t *testing.T) {
	canceled := make(chan struct{})
	started := make(chan struct{})

	ctl := New(fetchFunc(func(ctx context.Context, req source.Request) (*source.Result, error) {
		if req.Page == 1 && req.Filters.Query == "slow" {
			close(started)
			<-ctx.Done()
			close(canceled)
			return nil, ctx.Err()
		}
		return page(0), nil
	}), logger.NewNop())

	go ctl.SetFilters(context.Background(), model.SearchFilters{Query: "slow"})
	<-started

	_, err := ctl.SetFilters(context.Background(), model.SearchFilters{Query: "fast"})
	require.NoError(t, err)

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight fetch was not canceled")
	}
}

func TestController_FailureKeepsPreviousData(t *testing.T) {
	fail := false
	ctl := New(fetchFunc(func(ctx context.Context, req source.Request) (*source.Result, error) {
		if fail {
			return nil, errors.New("all data sources failed")
		}
		return page(2, "c1", "c2"), nil
	}), logger.NewNop())

	_, err := ctl.Refresh(context.Background())
	require.NoError(t, err)

	fail = true
	s, err := ctl.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusErrored, s.Status)
	assert.Equal(t, []string{"c1", "c2"}, dataIDs(s))
}

func TestController_OnChangeSeesTransitions(t *testing.T) {
	ctl := New(fetchFunc(func(ctx context.Context, req source.Request) (*source.Result, error) {
		return page(3, "c1"), nil
	}), logger.NewNop())

	var seen []Status
	ctl.OnChange(func(s State) { seen = append(seen, s.Status) })

	_, err := ctl.SetSort(context.Background(), model.SortHot)
	require.NoError(t, err)
	assert.Equal(t, []Status{StatusLoading, StatusLoaded}, seen)
}

func TestController_RequestCarriesView(t *testing.T) {
	var got source.Request
	ctl := New(fetchFunc(func(ctx context.Context, req source.Request) (*source.Result, error) {
		got = req
		return page(500), nil
	}), logger.NewNop())

	_, err := ctl.Refresh(context.Background())
	require.NoError(t, err)
	_, err = ctl.SetPageSize(context.Background(), 50)
	require.NoError(t, err)
	_, err = ctl.SetPage(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 7, got.Page)
	assert.Equal(t, 50, got.PageSize)
	assert.Equal(t, model.SortRecent, got.Filters.Sort)
}

func TestRealtime_DeduplicatesWithFetch(t *testing.T) {
	t0 := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	fetched := model.Conversation{ID: "c1", Notes: "fetched", CreatedAt: t0, UpdatedAt: t0}
	live := model.Conversation{ID: "c1", Notes: "live", CreatedAt: t0, UpdatedAt: t0.Add(time.Minute)}

	// insert arrives first, then a fetch returns an older copy
	s := NewState().ApplyInsert(live)
	s = s.Loaded([]model.Conversation{fetched, {ID: "c2", UpdatedAt: t0}}, 2, source.SourceAPI)
	require.Equal(t, []string{"c1", "c2"}, dataIDs(s))
	assert.Equal(t, "live", s.Data[0].Notes)

	// fetch first, then the insert event for the same row
	s = NewState().Loaded([]model.Conversation{fetched}, 1, source.SourceAPI).ApplyInsert(live)
	require.Len(t, s.Data, 1)
	assert.Equal(t, "live", s.Data[0].Notes)
	assert.Equal(t, 1, s.Total)

	// an older update never overwrites a newer row
	s = s.ApplyUpdate(fetched)
	assert.Equal(t, "live", s.Data[0].Notes)
}

func TestRealtime_InsertRespectsFilters(t *testing.T) {
	s := NewState().SetFilters(model.SearchFilters{LeadQuality: []model.LeadQuality{model.LeadHot}})

	s = s.ApplyInsert(model.Conversation{ID: "cold", LeadQuality: model.LeadCold})
	assert.Empty(t, s.Data)

	s = s.ApplyInsert(model.Conversation{ID: "hot", LeadQuality: model.LeadHot})
	assert.Equal(t, []string{"hot"}, dataIDs(s))
	assert.Equal(t, 1, s.Total)
}

func TestController_ApplyUpdateConcurrentWithRefresh(t *testing.T) {
	ctl := New(fetchFunc(func(ctx context.Context, req source.Request) (*source.Result, error) {
		return page(50, "c1", "c2", "c3"), nil
	}), logger.NewNop())

	_, err := ctl.Refresh(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			ctl.ApplyUpdate(model.Conversation{ID: "c2", Notes: fmt.Sprintf("n%d", i), UpdatedAt: time.Now()})
		}
	}()
	for i := 0; i < 10; i++ {
		_, _ = ctl.Refresh(context.Background())
	}
	<-done

	s := ctl.State()
	assert.Len(t, s.Data, 3)
}

func TestController_RealtimeNotifiesOnlyOnChange(t *testing.T) {
	t0 := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	ctl := New(fetchFunc(func(ctx context.Context, req source.Request) (*source.Result, error) {
		return &source.Result{Data: []model.Conversation{{ID: "c1", LeadQuality: model.LeadHot, UpdatedAt: t0}}, Total: 1}, nil
	}), logger.NewNop())
	_, err := ctl.SetFilters(context.Background(), model.SearchFilters{LeadQuality: []model.LeadQuality{model.LeadHot}})
	require.NoError(t, err)

	var changes int
	ctl.OnChange(func(State) { changes++ })

	ctl.ApplyUpdate(model.Conversation{ID: "elsewhere", UpdatedAt: t0})
	ctl.ApplyInsert(model.Conversation{ID: "cold", LeadQuality: model.LeadCold})
	ctl.ApplyUpdate(model.Conversation{ID: "c1", UpdatedAt: t0.Add(-time.Minute)})
	assert.Equal(t, 0, changes)

	ctl.ApplyUpdate(model.Conversation{ID: "c1", Notes: "called back", LeadQuality: model.LeadHot, UpdatedAt: t0.Add(time.Minute)})
	ctl.ApplyInsert(model.Conversation{ID: "c2", LeadQuality: model.LeadHot})
	assert.Equal(t, 2, changes)
	assert.Equal(t, []string{"c2", "c1"}, dataIDs(ctl.State()))
	assert.Equal(t, "called back", ctl.State().Data[1].Notes)
}
