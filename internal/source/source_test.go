package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/remote"
	"github.com/homefront-realty/admin-backoffice/internal/store"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

type stubStrategy struct {
	name  string
	err   error
	calls int
	last  Request
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Fetch(ctx context.Context, req Request) (*Result, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &Result{Total: 1, Source: s.name}, nil
}

func memoryRepo() *store.Memory {
	m := store.NewMemory(store.Capabilities{})
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, q := range []model.LeadQuality{model.LeadHot, model.LeadHot, model.LeadWarm, model.LeadCold} {
		m.Put(model.Conversation{
			ID:          fmt.Sprintf("c%d", i+1),
			LeadQuality: q,
			LeadScore:   90 - i*20,
			Tags:        []string{"vip"},
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		})
	}
	return m
}

func TestChain_FirstSuccessWins(t *testing.T) {
	api := &stubStrategy{name: SourceAPI}
	db := &stubStrategy{name: SourceDatabase}

	res, err := NewChain(logger.NewNop(), api, db).Fetch(context.Background(), Request{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, SourceAPI, res.Source)
	assert.Equal(t, 1, api.calls)
	assert.Zero(t, db.calls)
}

func TestChain_FallsBackWithSameRequest(t *testing.T) {
	api := &stubStrategy{name: SourceAPI, err: errors.New("503")}
	db := &stubStrategy{name: SourceDatabase}

	req := Request{
		Filters:  model.SearchFilters{Query: "ava", Tags: []string{"vip"}, Sort: model.SortCold},
		Page:     3,
		PageSize: 25,
	}
	res, err := NewChain(logger.NewNop(), api, db).Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourceDatabase, res.Source)
	assert.Equal(t, api.last, db.last)
	assert.Equal(t, req, db.last)
}

func TestChain_AllFailCombinesErrors(t *testing.T) {
	errAPI := errors.New("api down")
	errDB := errors.New("db down")

	_, err := NewChain(logger.NewNop(),
		&stubStrategy{name: SourceAPI, err: errAPI},
		&stubStrategy{name: SourceDatabase, err: errDB},
	).Fetch(context.Background(), Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errAPI)
	assert.ErrorIs(t, err, errDB)
	assert.Len(t, multierr.Errors(errors.Unwrap(err)), 2)
}

func TestChain_DefaultsPaging(t *testing.T) {
	s := &stubStrategy{name: SourceAPI}
	_, err := NewChain(logger.NewNop(), s).Fetch(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, s.last.Page)
	assert.Equal(t, 20, s.last.PageSize)
}

func TestChain_Empty(t *testing.T) {
	_, err := NewChain(logger.NewNop(), nil).Fetch(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoStrategies)
}

func TestChain_StopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	db := &stubStrategy{name: SourceDatabase}
	_, err := NewChain(logger.NewNop(), &stubStrategy{name: SourceAPI, err: context.Canceled}, db).Fetch(ctx, Request{})
	assert.Error(t, err)
	assert.Zero(t, db.calls)
}

func TestAPIFailureFallsBackToDatabase(t *testing.T) {
	repo := memoryRepo()
	db := NewDBStrategy(repo)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	req := Request{
		Filters:  model.SearchFilters{LeadQuality: []model.LeadQuality{model.LeadHot}, Sort: model.SortHot},
		Page:     1,
		PageSize: 10,
	}

	res, err := NewChain(logger.NewNop(), NewAPIStrategy(remote.New(srv.URL, "k")), db).Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourceDatabase, res.Source)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Data, 2)
	assert.Equal(t, 90, res.Data[0].LeadScore)
	assert.Equal(t, 70, res.Data[1].LeadScore)
}
