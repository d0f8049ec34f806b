// Package http exposes the catalog's REST surface plus health, readiness,
// and metrics endpoints. It owns request framing only; all operation
// semantics live in the store and ingestion packages.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quakewatch/quake-api/internal/domain"
	"github.com/quakewatch/quake-api/internal/ingest"
	"github.com/quakewatch/quake-api/internal/observability"
)

// Catalog is the read-side query surface the handlers serve.
type Catalog interface {
	List(ctx context.Context, limit int, minMagnitude *float64) ([]domain.Event, error)
	SearchRadius(ctx context.Context, lat, lon, radiusKm float64) ([]domain.EventWithDistance, error)
	SearchPolygon(ctx context.Context, polygonWKT string) ([]domain.Event, error)
	BoundaryStats(ctx context.Context, ids []string) (domain.BoundaryStats, error)
}

// Summarizer produces whole-table statistics. Split from Catalog so an
// optional cache can wrap just this operation.
type Summarizer interface {
	Summarize(ctx context.Context) (domain.Summary, error)
}

// Syncer triggers a feed synchronization run.
type Syncer interface {
	Sync(ctx context.Context) (ingest.Result, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Deps collects the collaborators the server fronts.
type Deps struct {
	Catalog Catalog
	Stats   Summarizer
	Syncer  Syncer
	Ready   ReadinessChecker
}

// Server exposes the catalog HTTP API.
type Server struct {
	httpServer   *http.Server
	deps         Deps
	defaultLimit int
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewServer creates the HTTP server and wires all routes. defaultLimit caps
// list responses when the client does not pass one.
func NewServer(addr string, deps Deps, defaultLimit int, logger *slog.Logger, metrics *observability.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      allowAllCORS(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:         deps,
		defaultLimit: defaultLimit,
		logger:       logger,
		metrics:      metrics,
	}

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/status", s.handleHealth)
	mux.HandleFunc("GET /api/earthquakes", s.handleList)
	mux.HandleFunc("GET /api/earthquakes/recent", s.handleList)
	mux.HandleFunc("GET /api/earthquakes/sync", s.handleSync)
	mux.HandleFunc("POST /api/earthquakes/search/radius", s.handleSearchRadius)
	mux.HandleFunc("POST /api/earthquakes/search/region", s.handleSearchRegion)
	mux.HandleFunc("POST /api/earthquakes/boundary", s.handleBoundary)
	mux.HandleFunc("GET /api/earthquakes/stats", s.handleStats)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Earthquake Catalog API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.Ready.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// allowAllCORS mirrors the permissive policy of the public catalog: any
// origin may read.
func allowAllCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}
