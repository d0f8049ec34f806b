package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/quakewatch/quake-api/internal/domain"
)

type radiusSearchRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKm  float64 `json:"radius_km"`
}

type regionSearchRequest struct {
	PolygonWKT string `json:"polygon_wkt"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	defer s.observe("list")()

	limit := s.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeClientError(w, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	var minMagnitude *float64
	if raw := r.URL.Query().Get("min_magnitude"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeClientError(w, fmt.Errorf("invalid min_magnitude %q", raw))
			return
		}
		minMagnitude = &v
	}

	events, err := s.deps.Catalog.List(r.Context(), limit, minMagnitude)
	if err != nil {
		s.writeError(w, "list events", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Syncer.Sync(r.Context())
	if err != nil {
		s.writeError(w, "sync feed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   fmt.Sprintf("sync complete: %d events inserted", res.Inserted),
		"processed": res.Processed,
		"inserted":  res.Inserted,
		"skipped":   res.Skipped,
	})
}

func (s *Server) handleSearchRadius(w http.ResponseWriter, r *http.Request) {
	defer s.observe("radius")()

	var req radiusSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeClientError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 {
		s.writeClientError(w, fmt.Errorf("latitude %v out of range [-90,90]", req.Latitude))
		return
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		s.writeClientError(w, fmt.Errorf("longitude %v out of range [-180,180]", req.Longitude))
		return
	}
	if req.RadiusKm < 0 {
		s.writeClientError(w, fmt.Errorf("radius_km %v must not be negative", req.RadiusKm))
		return
	}

	results, err := s.deps.Catalog.SearchRadius(r.Context(), req.Latitude, req.Longitude, req.RadiusKm)
	if err != nil {
		s.writeError(w, "radius search", err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSearchRegion(w http.ResponseWriter, r *http.Request) {
	defer s.observe("polygon")()

	var req regionSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeClientError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}

	events, err := s.deps.Catalog.SearchPolygon(r.Context(), req.PolygonWKT)
	if err != nil {
		s.writeError(w, "polygon search", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleBoundary(w http.ResponseWriter, r *http.Request) {
	defer s.observe("boundary")()

	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		s.writeClientError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}

	stats, err := s.deps.Catalog.BoundaryStats(r.Context(), ids)
	if err != nil {
		s.writeError(w, "boundary stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	defer s.observe("summary")()

	summary, err := s.deps.Stats.Summarize(r.Context())
	if err != nil {
		s.writeError(w, "summarize", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// writeError maps domain failures to status codes: malformed client geometry
// and empty boundary selections are client errors; everything else is an
// internal failure whose detail stays out of the response.
func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidGeometry):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNoEvents):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		s.logger.Error(op+" failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (s *Server) writeClientError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

// observe counts a query operation and times it.
func (s *Server) observe(operation string) func() {
	s.metrics.Queries.WithLabelValues(operation).Inc()
	start := time.Now()
	return func() {
		s.metrics.QueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
