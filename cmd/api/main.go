// Command api serves the earthquake catalog: a geospatially indexed event
// store fed from the USGS summary feed and queried over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	httpadapter "github.com/quakewatch/quake-api/internal/adapter/http"
	"github.com/quakewatch/quake-api/internal/adapter/statscache"
	"github.com/quakewatch/quake-api/internal/adapter/usgs"
	"github.com/quakewatch/quake-api/internal/config"
	"github.com/quakewatch/quake-api/internal/ingest"
	"github.com/quakewatch/quake-api/internal/observability"
	"github.com/quakewatch/quake-api/internal/store/postgres"
)

func main() {
	// Best effort; the environment wins over any .env file.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Summary cache is feature-flagged via REDIS_ADDR.
	var summarizer httpadapter.Summarizer = store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		summarizer = statscache.New(store, statscache.NewRedisKV(rdb), cfg.StatsCacheTTL, logger, metrics.StatsCache)
		logger.Info("stats cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.StatsCacheTTL)
	} else {
		logger.Info("stats cache disabled")
	}

	feed := usgs.NewClient(cfg.FeedURL, cfg.FeedTimeout, logger)
	pipeline := ingest.New(feed, store, logger, metrics, cfg.SyncInterval)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Catalog: store,
		Stats:   summarizer,
		Syncer:  pipeline,
		Ready:   store,
	}, cfg.ListDefaultLimit, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := pipeline.Run(ctx); err != nil {
			logger.Error("periodic sync error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
