package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/pensionledger/internal/adapter/http/handler"
	"github.com/iho/pensionledger/internal/adapter/http/middleware"
	"github.com/iho/pensionledger/internal/infrastructure/metrics"
	"github.com/iho/pensionledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	BalanceHandler        *handler.BalanceHandler
	WithdrawalHandler     *handler.WithdrawalHandler
	UserHandler           *handler.UserHandler
	ContributionHandler   *handler.ContributionHandler
	ReconciliationHandler *handler.ReconciliationHandler
	HealthHandler         *handler.HealthHandler

	// IdempotencyStore is optional; nil disables the Idempotency-Key middleware.
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration

	Metrics  *metrics.Metrics
	Registry prometheus.Gatherer

	RateLimiter        *middleware.RateLimiter
	CORSAllowedOrigins []string

	Logger zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.AccessLog(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", middleware.IdempotencyKeyHeader},
			ExposedHeaders: []string{"Retry-After"},
			MaxAge:         300,
		}))
	}

	// Ops endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.IdempotencyStore != nil {
			idempotency := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
			r.Use(idempotency.Wrap)
		}

		r.Route("/users", func(r chi.Router) {
			r.Post("/", cfg.UserHandler.Create)
			r.Get("/", cfg.UserHandler.List)

			r.Route("/{userId}", func(r chi.Router) {
				r.Get("/", cfg.UserHandler.Get)

				r.Get("/balance", cfg.BalanceHandler.Get)
				r.Post("/balance/recalculate", cfg.BalanceHandler.Recalculate)

				r.Post("/withdrawals", cfg.WithdrawalHandler.Create)
				r.Get("/withdrawals", cfg.WithdrawalHandler.List)

				r.Post("/contributions", cfg.ContributionHandler.Create)
				r.Get("/contributions", cfg.ContributionHandler.List)

				r.Get("/reconciliation", cfg.ReconciliationHandler.User)
			})
		})

		r.Get("/reconciliation", cfg.ReconciliationHandler.Report)
	})

	return r
}
