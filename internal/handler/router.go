package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/homefront-realty/admin-backoffice/internal/middleware"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

// RouterConfig holds the cross-cutting HTTP settings.
type RouterConfig struct {
	Auth              middleware.AuthConfig
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Health        *HealthHandler
	Conversations *ConversationHandler
	FollowUps     *FollowUpHandler
	Export        *ExportHandler
	Analytics     *AnalyticsHandler
	Stream        *StreamHandler
}

// NewRouter builds the admin API router.
func NewRouter(cfg RouterConfig, h Handlers, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth))
		r.Use(middleware.TrackAdmin)
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", h.Conversations.List)
			r.Get("/export", h.Export.Export)
			r.Post("/bulk-update", h.Conversations.BulkUpdate)
			r.Post("/bulk-delete", h.Conversations.BulkDelete)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Conversations.Get)
				r.Patch("/", h.Conversations.Update)
				r.Delete("/", h.Conversations.Delete)
				r.Post("/summary", h.Conversations.Summarize)

				r.Get("/follow-ups", h.FollowUps.List)
				r.Post("/follow-ups", h.FollowUps.Schedule)
			})
		})

		r.Get("/search", h.Conversations.Search)
		r.Get("/analytics", h.Analytics.Snapshot)
		r.Get("/stream", h.Stream.Stream)
	})

	return r
}
