package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefront-realty/admin-backoffice/internal/config"
	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/realtime"
	"github.com/homefront-realty/admin-backoffice/internal/source"
	"github.com/homefront-realty/admin-backoffice/internal/store"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNop()

	repo, closeFn, err := OpenStore(ctx, &config.Config{StoreDriver: config.StoreMemory}, log)
	require.NoError(t, err)
	defer closeFn()
	assert.True(t, repo.Capabilities().FollowUpTasks)

	_, _, err = OpenStore(ctx, &config.Config{StoreDriver: config.StorePostgres}, log)
	assert.ErrorContains(t, err, "DATABASE_URL")

	_, _, err = OpenStore(ctx, &config.Config{StoreDriver: "sqlite"}, log)
	assert.Error(t, err)
}

func TestConnectBus_InProcess(t *testing.T) {
	bus, nc, err := ConnectBus(context.Background(), &config.Config{}, "test", logger.NewNop())
	require.NoError(t, err)
	assert.Nil(t, nc)
	assert.IsType(t, &realtime.LocalBus{}, bus)
}

func TestFetcher_DatabaseOnly(t *testing.T) {
	repo := store.NewMemory(store.Capabilities{})
	repo.Put(model.Conversation{ID: "c1", CreatedAt: time.Now()})

	res, err := Fetcher(RemoteClient(&config.Config{}), repo, logger.NewNop()).
		Fetch(context.Background(), source.Request{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, source.SourceDatabase, res.Source)
	assert.Equal(t, 1, res.Total)
}

func TestAnalytics_WithCache(t *testing.T) {
	mr := miniredis.RunT(t)
	repo := store.NewMemory(store.Capabilities{})
	cfg := &config.Config{RedisURL: "redis://" + mr.Addr(), AnalyticsCacheTTL: time.Minute}

	agg, closeFn := Analytics(context.Background(), cfg, nil, repo, logger.NewNop())
	defer closeFn()

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := agg.Snapshot(context.Background(), from, from.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.NotEmpty(t, mr.Keys())
}

func TestAnalytics_UnreachableCacheIsSkipped(t *testing.T) {
	cfg := &config.Config{RedisURL: "redis://127.0.0.1:1", AnalyticsCacheTTL: time.Minute}
	agg, closeFn := Analytics(context.Background(), cfg, nil, store.NewMemory(store.Capabilities{}), logger.NewNop())
	defer closeFn()

	_, err := agg.Snapshot(context.Background(), time.Time{}, time.Time{})
	assert.NoError(t, err)
}

func TestOptionalClients(t *testing.T) {
	log := logger.NewNop()
	assert.Nil(t, LLM(&config.Config{LLMProvider: "anthropic"}, log))
	assert.NotNil(t, LLM(&config.Config{LLMProvider: "openai", OpenAIAPIKey: "sk"}, log))

	up, err := Uploader(&config.Config{}, log)
	require.NoError(t, err)
	assert.Nil(t, up)

	assert.Nil(t, RemoteClient(&config.Config{}))
	assert.NotNil(t, RemoteClient(&config.Config{AdminAPIURL: "https://admin.example.com"}))
}

func TestStartChangeFeed(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory(store.Capabilities{})
	pub := realtime.NewPublisher(realtime.NewLocalBus(), logger.NewNop())

	started, err := StartChangeFeed(ctx, &config.Config{}, repo, pub, logger.NewNop())
	require.NoError(t, err)
	assert.False(t, started)

	started, err = StartChangeFeed(ctx, &config.Config{ChangeFeed: true}, repo, pub, logger.NewNop())
	assert.ErrorContains(t, err, "CHANGE_FEED requires")
	assert.False(t, started)
}
