package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/practice-calendar/internal/calendar"
	"github.com/clinicdesk/practice-calendar/internal/config"
	"github.com/clinicdesk/practice-calendar/internal/db"
	"github.com/clinicdesk/practice-calendar/internal/external"
	"github.com/clinicdesk/practice-calendar/internal/external/importer"
	"github.com/clinicdesk/practice-calendar/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("dev", "sync-worker")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.Env, "sync-worker")
	log.Info().
		Str("env", cfg.Env).
		Str("schedule", cfg.SyncSchedule).
		Int("feeds", len(cfg.FeedURLs)).
		Msg("sync-worker starting up")

	if len(cfg.FeedURLs) == 0 {
		log.Fatal().Msg("FEED_URLS is empty, nothing to sync")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	im := importer.New(external.NewPgRepository(pgPool), log)

	feeds := make([]importer.Feed, 0, len(cfg.FeedURLs))
	for _, u := range cfg.FeedURLs {
		feeds = append(feeds, importer.Feed{ID: u, URL: u})
	}

	// Run once at startup, then on the configured schedule.
	syncAll(rootCtx, log, im, feeds, cfg.SyncWindowDays)

	c := cron.New()
	_, err = c.AddFunc(cfg.SyncSchedule, func() {
		syncAll(rootCtx, log, im, feeds, cfg.SyncWindowDays)
	})
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SyncSchedule).Msg("invalid sync schedule")
	}
	c.Start()

	<-rootCtx.Done()
	log.Info().Msg("shutdown signal received, stopping sync worker")

	// Let an in-flight run finish before exiting.
	<-c.Stop().Done()
}

func syncAll(ctx context.Context, log zerolog.Logger, im *importer.Importer, feeds []importer.Feed, windowDays int) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	today := calendar.StartOfDay(time.Now())
	window := calendar.DateRange{
		From: today.AddDate(0, 0, -windowDays),
		To:   today.AddDate(0, 0, windowDays),
	}

	start := time.Now()
	for _, feed := range feeds {
		if err := im.SyncFeed(runCtx, feed, window); err != nil {
			log.Error().Err(err).Str("feed", feed.URL).Msg("feed sync failed")
		}
	}
	log.Info().Dur("elapsed", time.Since(start)).Int("feeds", len(feeds)).Msg("sync run complete")
}
