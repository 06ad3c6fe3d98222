package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/facility-booking/internal/api"
	"github.com/hackgods/facility-booking/internal/appointment"
	"github.com/hackgods/facility-booking/internal/backend"
	"github.com/hackgods/facility-booking/internal/config"
	"github.com/hackgods/facility-booking/internal/db"
	"github.com/hackgods/facility-booking/internal/facility"
	"github.com/hackgods/facility-booking/internal/observability/metrics"
	redisclient "github.com/hackgods/facility-booking/internal/redis"
	"github.com/hackgods/facility-booking/pkg/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.New("info")
		l.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.LogLevel)
	if cfg.Env == "dev" {
		logger = logging.NewConsole(cfg.LogLevel)
	}
	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("backend", cfg.BackendBaseURL).
		Str("actor_role", string(cfg.ActorRole)).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(cfg.BackendBaseURL, cfg.BackendToken, cfg.BackendTimeout, logger.With().Str("component", "backend").Logger())
	store := facility.NewStore(client, logger.With().Str("component", "facility").Logger())
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewBookingMetrics(reg)

	svcOpts := []appointment.Option{appointment.WithLogger(logger.With().Str("component", "appointment").Logger())}

	// Connect Postgres
	var pgPool *pgxpool.Pool
	if cfg.PostgresDSN != "" {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		if err == nil {
			err = db.EnsureSchema(pgCtx, pgPool)
		}
		cancelPg()
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection error")
		}
		defer pgPool.Close()
		svcOpts = append(svcOpts, appointment.WithEventRecorder(appointment.NewPgEventLog(pgPool)))
		logger.Info().Msg("connected to Postgres, transition audit log enabled")
	}

	// Connect Redis
	var rdb *redis.Client
	var guard redisclient.Guard = redisclient.NopGuard{}
	if cfg.RedisEnabled() {
		rdb, err = redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection error")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing redis")
			}
		}()
		guard = redisclient.NewRedisGuard(rdb, cfg.LockTTL)
		logger.Info().Dur("lock_ttl", cfg.LockTTL).Msg("connected to Redis, submission guard enabled")
	}

	if cfg.FacilityID != "" {
		if err := store.Load(rootCtx, facility.Current, cfg.FacilityID, cfg.ActorRole); err != nil {
			// a partial aggregate is still served; the failed parts are in its error fields
			m.ObserveAggregateLoad(facility.Current.String(), metrics.OutcomePartial)
			logger.Warn().Err(err).Str("facility_id", cfg.FacilityID).Msg("current facility loaded with errors")
		} else {
			m.ObserveAggregateLoad(facility.Current.String(), metrics.OutcomeSuccess)
		}
	}

	router := api.NewRouter(api.RouterConfig{
		Scheduler:   appointment.NewScheduler(client, store, svcOpts...),
		Store:       store,
		Guard:       guard,
		DefaultRole: cfg.ActorRole,
		Grid:        cfg.Grid,
		Metrics:     m,
		Gatherer:    reg,
		PgPool:      pgPool,
		Redis:       rdb,
		Logger:      logger,
		Env:         cfg.Env,
		Version:     version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()
	logger.Info().Str("addr", srv.Addr).Msg("api-server listening")

	<-rootCtx.Done()

	logger.Info().Msg("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}
