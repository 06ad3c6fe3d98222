package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/facility-booking/internal/appointment"
	"github.com/hackgods/facility-booking/internal/facility"
	"github.com/hackgods/facility-booking/internal/observability/metrics"
	"github.com/hackgods/facility-booking/internal/permission"
	redisclient "github.com/hackgods/facility-booking/internal/redis"
	"github.com/hackgods/facility-booking/internal/schedule"
)

type RouterConfig struct {
	Scheduler *appointment.Scheduler
	Store     *facility.Store

	// Guard serialises duplicate transitions. Nil means no guard.
	Guard redisclient.Guard

	// DefaultRole is used when a request carries no X-Actor-Role.
	DefaultRole permission.Role
	Grid        schedule.Grid

	Metrics  *metrics.BookingMetrics
	Gatherer prometheus.Gatherer
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Logger   zerolog.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Guard == nil {
		cfg.Guard = redisclient.NopGuard{}
	}
	if cfg.Grid.Interval == 0 {
		cfg.Grid = schedule.Hourly
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger, cfg.Metrics))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	h := &handlers{
		svc:         cfg.Scheduler,
		store:       cfg.Store,
		guard:       cfg.Guard,
		defaultRole: cfg.DefaultRole,
		grid:        cfg.Grid,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}

	r.Get("/practitioners/{id}/slots", h.slots)

	// Facility views
	r.Get("/facilities/{id}", h.getFacility)
	r.Post("/facilities/{id}/select", h.selectFacility)
	r.Delete("/facilities/selected", h.clearSelected)

	// Appointment endpoints
	r.Post("/appointments/book", h.book)
	r.Post("/appointments/book-cash", h.bookCash)
	r.Get("/appointments/{id}/permissions", h.permissions)
	r.Put("/appointments/{id}/cancel", h.cancel)
	r.Put("/appointments/{id}/reschedule", h.reschedule)
	r.Post("/appointments/{id}/complete", h.complete)

	return r
}
