package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pricetracker/config"
	"pricetracker/internal/fetcher"
	"pricetracker/internal/tracker"
	"pricetracker/logger"
	"pricetracker/scheduler"
	"pricetracker/server"
	"pricetracker/services/cache"
	"pricetracker/services/notifier"
	"pricetracker/services/publisher"
	"pricetracker/services/storage"
)

func main() {
	godotenv.Load()
	logger.Init()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Default.WithError(err).Fatal().Msg("Invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Default.WithError(err).Fatal().Msg("Failed to connect to database")
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		logger.Default.WithError(err).Fatal().Msg("Failed to initialize schema")
	}

	cacheSvc := cache.NewMemcacheService(cfg.MemcacheAddr)
	static := fetcher.NewStaticFetcher(cacheSvc)

	var rendered fetcher.Fetcher
	if cfg.ChromeAddr != "" {
		rendered = fetcher.NewChromeFetcher(cfg.ChromeAddr)
		logger.Info("Rendered fetch fallback enabled via %s", cfg.ChromeAddr)
	}

	pub := publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamCount, cfg.RedisStreamMaxLength)
	defer pub.Close()

	mail := notifier.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom)

	tr := tracker.New(store, static, rendered, pub, mail)

	sched, err := scheduler.New(tr, cfg.SweepInterval)
	if err != nil {
		logger.Default.WithError(err).Fatal().Msg("Failed to create scheduler")
	}
	sched.Start()

	srv := server.New(cfg, tr, store)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received signal %s, shutting down", sig)
	case err := <-errCh:
		logger.Default.WithError(err).Error().Msg("HTTP server failed")
	}

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Default.WithError(err).Error().Msg("HTTP server shutdown failed")
	}

	logger.Info("Shutdown complete")
}
