package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicdesk/practice-calendar/internal/api"
	"github.com/clinicdesk/practice-calendar/internal/appointment"
	"github.com/clinicdesk/practice-calendar/internal/calendar"
	"github.com/clinicdesk/practice-calendar/internal/config"
	"github.com/clinicdesk/practice-calendar/internal/db"
	"github.com/clinicdesk/practice-calendar/internal/external"
	"github.com/clinicdesk/practice-calendar/internal/logging"
	redisclient "github.com/clinicdesk/practice-calendar/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("dev", "api-server")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.Env, "api-server")
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	// The now-indicator and default anchor follow the practice's display zone.
	loc, err := time.LoadLocation(cfg.CalendarTZ)
	if err != nil {
		log.Fatal().Err(err).Str("tz", cfg.CalendarTZ).Msg("invalid CALENDAR_TZ")
	}

	locker := redisclient.NewRedisAppointmentLocker(rdb, cfg.LockTTL)
	appointments := appointment.NewService(appointment.NewPgRepository(pgPool), locker, log)
	events := external.NewService(external.NewPgRepository(pgPool), log)

	router := api.NewRouter(api.RouterConfig{
		Appointments:  appointments,
		Events:        events,
		Aggregator:    calendar.NewAggregator(log),
		PgPool:        pgPool,
		Redis:         rdb,
		Log:           log,
		Env:           cfg.Env,
		Version:       version,
		Now:           func() time.Time { return time.Now().In(loc) },
		GridStartHour: cfg.GridStartHour,
		GridEndHour:   cfg.GridEndHour,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("api-server stopped")
}
