package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultFeedURL is the USGS all-day summary feed pulled by sync runs.
const DefaultFeedURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL string
	HTTPAddr    string
	LogLevel    string
	LogFormat   string

	FeedURL      string
	FeedTimeout  time.Duration
	SyncInterval time.Duration // 0 disables the periodic sync loop

	ListDefaultLimit int

	// Optional Redis cache for summary statistics.
	RedisAddr     string
	RedisPassword string
	StatsCacheTTL time.Duration

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	feedTimeout, err := parseDuration("FEED_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	syncInterval, err := parseDuration("SYNC_INTERVAL", "0s")
	if err != nil {
		return nil, err
	}
	if syncInterval < 0 {
		return nil, errors.New("SYNC_INTERVAL must not be negative")
	}

	cacheTTL, err := parseDuration("STATS_CACHE_TTL", "60s")
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	listLimit, err := parseInt("LIST_DEFAULT_LIMIT", 100)
	if err != nil {
		return nil, err
	}
	if listLimit < 0 {
		return nil, errors.New("LIST_DEFAULT_LIMIT must not be negative")
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		HTTPAddr:    envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		LogFormat:   envOrDefault("LOG_FORMAT", "json"),

		FeedURL:      envOrDefault("FEED_URL", DefaultFeedURL),
		FeedTimeout:  feedTimeout,
		SyncInterval: syncInterval,

		ListDefaultLimit: listLimit,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		StatsCacheTTL: cacheTTL,

		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.FeedURL == "" {
		return nil, errors.New("FEED_URL is required")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := envOrDefault(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}
