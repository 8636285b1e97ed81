// Package bootstrap builds the shared dependencies of the API server and the operator
// CLI from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/analytics"
	"github.com/homefront-realty/admin-backoffice/internal/config"
	"github.com/homefront-realty/admin-backoffice/internal/export"
	"github.com/homefront-realty/admin-backoffice/internal/llm"
	natsclient "github.com/homefront-realty/admin-backoffice/internal/nats"
	"github.com/homefront-realty/admin-backoffice/internal/realtime"
	"github.com/homefront-realty/admin-backoffice/internal/remote"
	"github.com/homefront-realty/admin-backoffice/internal/source"
	"github.com/homefront-realty/admin-backoffice/internal/store"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

// MemoryCapabilities enables every optional feature of the in-memory store.
var MemoryCapabilities = store.Capabilities{FollowUpTasks: true, ConversationSummaries: true}

func noop() {}

// OpenStore opens the configured repository. The returned func releases it.
func OpenStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Repository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on exit")
		return store.NewMemory(MemoryCapabilities), noop, nil

	case config.StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, noop, fmt.Errorf("DATABASE_URL is required for the %s store", config.StorePostgres)
		}
		pg, err := store.Open(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, noop, err
		}
		return pg, func() {
			if err := pg.Close(); err != nil {
				log.Warn("failed to close database", zap.Error(err))
			}
		}, nil
	}
	return nil, noop, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

// ConnectBus connects to NATS when NATS_URL is set and otherwise returns an in-process
// bus. The NATS client is nil for the in-process bus.
func ConnectBus(ctx context.Context, cfg *config.Config, name string, log *logger.Logger) (realtime.Bus, *natsclient.Client, error) {
	if cfg.NATSURL == "" {
		log.Info("NATS_URL not set, realtime events stay in-process")
		return realtime.NewLocalBus(), nil, nil
	}

	nc, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
		Name:     name,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return nc, nc, nil
}

// RemoteClient returns the admin API client, or nil when ADMIN_API_URL is not set.
func RemoteClient(cfg *config.Config) *remote.Client {
	if cfg.AdminAPIURL == "" {
		return nil
	}
	return remote.New(cfg.AdminAPIURL, cfg.AdminAPIKey)
}

// Fetcher builds the page fetch chain: admin API first when rc is non-nil, then the
// database when repo is non-nil.
func Fetcher(rc *remote.Client, repo store.Repository, log *logger.Logger) *source.Chain {
	var strategies []source.Strategy
	if rc != nil {
		strategies = append(strategies, source.NewAPIStrategy(rc))
	}
	if repo != nil {
		strategies = append(strategies, source.NewDBStrategy(repo))
	}
	return source.NewChain(log, strategies...)
}

// Analytics builds the snapshot aggregator over rc then repo, with a Redis cache when
// REDIS_URL is set. A cache that cannot be reached is skipped.
func Analytics(ctx context.Context, cfg *config.Config, rc *remote.Client, repo store.Repository, log *logger.Logger) (*analytics.Aggregator, func()) {
	var sources []analytics.Source
	if rc != nil {
		sources = append(sources, rc)
	}
	if repo != nil {
		sources = append(sources, repo)
	}

	if cfg.RedisURL == "" {
		return analytics.NewAggregator(nil, log, sources...), noop
	}

	rdb, err := analytics.Dial(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn("analytics cache disabled", zap.Error(err))
		return analytics.NewAggregator(nil, log, sources...), noop
	}
	return analytics.NewAggregator(analytics.NewCache(rdb, cfg.AnalyticsCacheTTL), log, sources...), func() {
		_ = rdb.Close()
	}
}

// LLM returns the configured summary provider, or nil when it has no API key.
func LLM(cfg *config.Config, log *logger.Logger) llm.Client {
	key := cfg.LLMAPIKey()
	if key == "" {
		log.Info("no LLM API key set, summaries disabled")
		return nil
	}

	client, err := llm.NewClient(llm.Provider(cfg.LLMProvider), key, cfg.LLMBaseURL)
	if err != nil {
		log.Warn("failed to create LLM client, summaries disabled", zap.Error(err))
		return nil
	}
	return client
}

// Uploader returns the export uploader, or nil when EXPORT_BUCKET is not set.
func Uploader(cfg *config.Config, log *logger.Logger) (*export.Uploader, error) {
	if cfg.ExportBucket == "" {
		return nil, nil
	}
	return export.NewUploader(export.UploadConfig{
		Region:   cfg.ExportRegion,
		Bucket:   cfg.ExportBucket,
		Prefix:   cfg.ExportPrefix,
		Endpoint: cfg.ExportEndpoint,
	}, log)
}

// StartChangeFeed republishes database row changes on the bus through publisher when
// CHANGE_FEED is set. It returns false when the feed is disabled. The feed stops when ctx
// is done.
func StartChangeFeed(ctx context.Context, cfg *config.Config, repo store.Repository, publisher *realtime.Publisher, log *logger.Logger) (bool, error) {
	if !cfg.ChangeFeed {
		return false, nil
	}
	pg, ok := repo.(*store.Postgres)
	if !ok || cfg.DatabaseURL == "" {
		return false, fmt.Errorf("CHANGE_FEED requires the %s store and DATABASE_URL", config.StorePostgres)
	}

	if cfg.ChangeFeedInstall {
		if err := pg.InstallChangeTrigger(ctx); err != nil {
			return false, err
		}
		log.Info("conversation change trigger installed")
	}

	payloads, err := store.Listen(ctx, cfg.DatabaseURL, store.ChangeChannel, log)
	if err != nil {
		return false, err
	}
	go realtime.NewChangeFeed(repo, publisher, log).Run(ctx, payloads)

	log.Info("database change feed started", zap.String("channel", store.ChangeChannel))
	return true, nil
}
