// Package ingest pulls the USGS feed and writes new events into the catalog.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/quakewatch/quake-api/internal/domain"
	"github.com/quakewatch/quake-api/internal/observability"
)

// FeedFetcher retrieves the current feed document from the source.
type FeedFetcher interface {
	FetchFeed(ctx context.Context) (domain.FeatureCollection, error)
}

// EventStore runs an ingestion batch within a single transaction. The batch
// commits atomically at the end; any error rolls the whole batch back.
type EventStore interface {
	WithinTx(ctx context.Context, fn func(domain.EventWriter) error) error
}

// Result is the telemetry of one sync run. Inserted is the return contract;
// Processed and Skipped are operational counters surfaced for logging and
// tests.
type Result struct {
	Processed int `json:"processed"`
	Inserted  int `json:"inserted"`
	Skipped   int `json:"skipped"`
}

// Pipeline transforms feed features into repository writes with
// deduplication and per-record failure tolerance.
type Pipeline struct {
	fetcher  FeedFetcher
	store    EventStore
	logger   *slog.Logger
	metrics  *observability.Metrics
	interval time.Duration
}

// New creates a Pipeline. interval controls the periodic Run loop; zero
// disables it, leaving sync on-demand only.
func New(fetcher FeedFetcher, store EventStore, logger *slog.Logger, metrics *observability.Metrics, interval time.Duration) *Pipeline {
	return &Pipeline{
		fetcher:  fetcher,
		store:    store,
		logger:   logger,
		metrics:  metrics,
		interval: interval,
	}
}

// Sync fetches the feed and ingests it as one batch. The feed is fetched
// before the store transaction opens so no connection is held across the
// network pull. Records are processed in input order; a bad record is
// counted and skipped, never aborting the batch.
func (p *Pipeline) Sync(ctx context.Context) (Result, error) {
	start := time.Now()
	p.metrics.SyncRunning.Set(1)
	defer p.metrics.SyncRunning.Set(0)

	feed, err := p.fetcher.FetchFeed(ctx)
	if err != nil {
		p.metrics.SyncRuns.WithLabelValues("error").Inc()
		return Result{}, err
	}
	p.logger.Info("feed fetched", "features", len(feed.Features), "title", feed.Metadata.Title)

	var res Result
	err = p.store.WithinTx(ctx, func(tx domain.EventWriter) error {
		for _, feature := range feed.Features {
			res.Processed++
			p.metrics.FeaturesProcessed.Inc()

			event, perr := domain.ParseFeature(feature)
			if perr != nil {
				p.skip(skipReason(perr), feature.ID, perr)
				res.Skipped++
				continue
			}

			exists, eerr := tx.Exists(ctx, event.ID)
			if eerr != nil {
				// A failed existence check means the transaction itself is
				// broken; surface it and roll the batch back.
				return eerr
			}
			if exists {
				p.skip("duplicate_id", event.ID, nil)
				res.Skipped++
				continue
			}

			inserted, ierr := tx.Insert(ctx, event)
			if ierr != nil {
				p.skip("insert_failed", event.ID, ierr)
				res.Skipped++
				continue
			}
			if !inserted {
				// Conflict guard absorbed a concurrent insert of the same id.
				p.skip("duplicate_id", event.ID, nil)
				res.Skipped++
				continue
			}

			p.metrics.EventsInserted.Inc()
			res.Inserted++
		}
		return nil
	})
	if err != nil {
		p.metrics.SyncRuns.WithLabelValues("error").Inc()
		return Result{}, err
	}

	p.metrics.SyncRuns.WithLabelValues("success").Inc()
	p.metrics.SyncDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("sync complete",
		"processed", res.Processed,
		"inserted", res.Inserted,
		"skipped", res.Skipped,
	)
	return res, nil
}

// Run executes Sync on the configured interval until the context is
// cancelled. Failures are logged and the schedule continues; the next tick
// retries. Returns immediately when the periodic loop is disabled.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.interval <= 0 {
		p.logger.Info("periodic sync disabled")
		return nil
	}

	p.logger.Info("periodic sync started", "interval", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("periodic sync stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if _, err := p.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("scheduled sync failed", "error", err)
			}
		}
	}
}

func (p *Pipeline) skip(reason, id string, err error) {
	p.metrics.EventsSkipped.WithLabelValues(reason).Inc()
	if err != nil {
		p.logger.Warn("feature skipped", "reason", reason, "id", id, "error", err)
		return
	}
	p.logger.Debug("feature skipped", "reason", reason, "id", id)
}

// skipReason maps parse failures onto metric label values.
func skipReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnsupportedGeometry):
		return "unsupported_geometry"
	case errors.Is(err, domain.ErrMissingID):
		return "missing_id"
	case errors.Is(err, domain.ErrInvalidCoordinates):
		return "invalid_coordinates"
	default:
		return "parse_failed"
	}
}
