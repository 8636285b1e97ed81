// Package main is the entry point for the admin API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/bootstrap"
	"github.com/homefront-realty/admin-backoffice/internal/config"
	"github.com/homefront-realty/admin-backoffice/internal/handler"
	"github.com/homefront-realty/admin-backoffice/internal/middleware"
	"github.com/homefront-realty/admin-backoffice/internal/realtime"
	"github.com/homefront-realty/admin-backoffice/internal/service"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
	"github.com/homefront-realty/admin-backoffice/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting admin API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "admin-backoffice", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	// Open the database
	repo, closeStore, err := bootstrap.OpenStore(startCtx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore()
	log.Info("store ready",
		zap.String("driver", cfg.StoreDriver),
		zap.Any("capabilities", repo.Capabilities()),
	)

	// Connect the realtime bus
	bus, natsClient, err := bootstrap.ConnectBus(startCtx, cfg, "admin-api", log)
	if err != nil {
		log.Fatal("failed to connect to NATS", zap.Error(err))
	}
	var busHealth handler.Connectivity
	if natsClient != nil {
		defer natsClient.Close()
		busHealth = natsClient
	}

	aggregator, closeCache := bootstrap.Analytics(startCtx, cfg, nil, repo, log)
	defer closeCache()

	uploader, err := bootstrap.Uploader(cfg, log)
	if err != nil {
		log.Warn("export uploads disabled", zap.Error(err))
	}

	// Initialize services
	publisher := realtime.NewPublisher(bus, log)

	// Republish row changes made outside this service
	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	if _, err := bootstrap.StartChangeFeed(feedCtx, cfg, repo, publisher, log); err != nil {
		log.Fatal("failed to start change feed", zap.Error(err))
	}
	conversationSvc := service.NewConversationService(repo, publisher, log)
	conversationSvc.InvalidateOnWrite(aggregator)
	followUpSvc := service.NewFollowUpService(repo, publisher, log)
	summarySvc := service.NewSummaryService(repo, bootstrap.LLM(cfg, log), cfg.SummaryModel, log)

	// Initialize handlers
	handlers := handler.Handlers{
		Health:        handler.NewHealthHandler(repo, busHealth),
		Conversations: handler.NewConversationHandler(conversationSvc, summarySvc, log),
		FollowUps:     handler.NewFollowUpHandler(followUpSvc, log),
		Export:        handler.NewExportHandler(bootstrap.Fetcher(nil, repo, log), uploader, cfg.ExportMaxRows, log),
		Analytics:     handler.NewAnalyticsHandler(aggregator, log),
		Stream:        handler.NewStreamHandler(realtime.NewBridge(bus, log), cfg.SSEHeartbeat, log),
	}

	router := handler.NewRouter(handler.RouterConfig{
		Auth: middleware.AuthConfig{
			APIKey:    cfg.AdminAPIKey,
			JWTSecret: cfg.JWTSecret,
		},
		CORSOrigins:       cfg.CORSOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	}, handlers, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
