package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/quakewatch/quake-api/internal/adapter/http"
	"github.com/quakewatch/quake-api/internal/domain"
	"github.com/quakewatch/quake-api/internal/ingest"
	"github.com/quakewatch/quake-api/internal/observability"
)

// --- mocks ---

type mockCatalog struct {
	listLimit  int
	listMinMag *float64
	listResult []domain.Event
	listErr    error

	radiusArgs   []float64
	radiusResult []domain.EventWithDistance
	radiusErr    error

	polygonWKT    string
	polygonResult []domain.Event
	polygonErr    error

	boundaryIDs    []string
	boundaryResult domain.BoundaryStats
	boundaryErr    error
}

func (m *mockCatalog) List(_ context.Context, limit int, minMagnitude *float64) ([]domain.Event, error) {
	m.listLimit = limit
	m.listMinMag = minMagnitude
	return m.listResult, m.listErr
}

func (m *mockCatalog) SearchRadius(_ context.Context, lat, lon, radiusKm float64) ([]domain.EventWithDistance, error) {
	m.radiusArgs = []float64{lat, lon, radiusKm}
	return m.radiusResult, m.radiusErr
}

func (m *mockCatalog) SearchPolygon(_ context.Context, polygonWKT string) ([]domain.Event, error) {
	m.polygonWKT = polygonWKT
	return m.polygonResult, m.polygonErr
}

func (m *mockCatalog) BoundaryStats(_ context.Context, ids []string) (domain.BoundaryStats, error) {
	m.boundaryIDs = ids
	return m.boundaryResult, m.boundaryErr
}

type mockSummarizer struct {
	summary domain.Summary
	err     error
}

func (m *mockSummarizer) Summarize(_ context.Context) (domain.Summary, error) {
	return m.summary, m.err
}

type mockSyncer struct {
	result ingest.Result
	err    error
}

func (m *mockSyncer) Sync(_ context.Context) (ingest.Result, error) {
	return m.result, m.err
}

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type testServer struct {
	*httpadapter.Server
	catalog *mockCatalog
	stats   *mockSummarizer
	syncer  *mockSyncer
	ready   *mockReadiness
}

func newTestServer() *testServer {
	catalog := &mockCatalog{}
	stats := &mockSummarizer{}
	syncer := &mockSyncer{}
	ready := &mockReadiness{}
	srv := httpadapter.NewServer(":0", httpadapter.Deps{
		Catalog: catalog,
		Stats:   stats,
		Syncer:  syncer,
		Ready:   ready,
	}, 100, slog.Default(), observability.NewMetricsForTesting())
	return &testServer{Server: srv, catalog: catalog, stats: stats, syncer: syncer, ready: ready}
}

func do(t *testing.T, srv *testServer, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

// --- tests ---

func TestHealthAndReadiness(t *testing.T) {
	srv := newTestServer()

	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	srv.ready.err = errors.New("database unreachable")
	rec = do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRootBanner(t *testing.T) {
	srv := newTestServer()
	rec := do(t, srv, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Earthquake Catalog API", body["message"])
}

func TestListEvents(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		srv := newTestServer()
		srv.catalog.listResult = []domain.Event{{ID: "ev1"}}

		rec := do(t, srv, http.MethodGet, "/api/earthquakes", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 100, srv.catalog.listLimit)
		assert.Nil(t, srv.catalog.listMinMag)

		var events []domain.Event
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
		require.Len(t, events, 1)
		assert.Equal(t, "ev1", events[0].ID)
	})

	t.Run("recent alias", func(t *testing.T) {
		srv := newTestServer()
		rec := do(t, srv, http.MethodGet, "/api/earthquakes/recent?limit=5", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5, srv.catalog.listLimit)
	})

	t.Run("query parameters", func(t *testing.T) {
		srv := newTestServer()
		rec := do(t, srv, http.MethodGet, "/api/earthquakes?limit=10&min_magnitude=3.5", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 10, srv.catalog.listLimit)
		require.NotNil(t, srv.catalog.listMinMag)
		assert.Equal(t, 3.5, *srv.catalog.listMinMag)
	})

	t.Run("invalid parameters rejected", func(t *testing.T) {
		srv := newTestServer()

		rec := do(t, srv, http.MethodGet, "/api/earthquakes?limit=lots", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, srv, http.MethodGet, "/api/earthquakes?limit=-1", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, srv, http.MethodGet, "/api/earthquakes?min_magnitude=big", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("store failure is an internal error", func(t *testing.T) {
		srv := newTestServer()
		srv.catalog.listErr = errors.New("connection refused")

		rec := do(t, srv, http.MethodGet, "/api/earthquakes", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})
}

func TestSearchRadius(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		srv := newTestServer()
		srv.catalog.radiusResult = []domain.EventWithDistance{
			{Event: domain.Event{ID: "ev1"}, DistanceKm: 0},
		}

		rec := do(t, srv, http.MethodPost, "/api/earthquakes/search/radius",
			`{"latitude": 35.57, "longitude": -117.67, "radius_km": 50}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []float64{35.57, -117.67, 50}, srv.catalog.radiusArgs)
		assert.Contains(t, rec.Body.String(), `"distance_km":0`)
	})

	t.Run("zero radius allowed", func(t *testing.T) {
		srv := newTestServer()
		rec := do(t, srv, http.MethodPost, "/api/earthquakes/search/radius",
			`{"latitude": 0, "longitude": 0, "radius_km": 0}`)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("validation", func(t *testing.T) {
		srv := newTestServer()
		for name, body := range map[string]string{
			"latitude out of range":  `{"latitude": 91, "longitude": 0, "radius_km": 1}`,
			"longitude out of range": `{"latitude": 0, "longitude": -181, "radius_km": 1}`,
			"negative radius":        `{"latitude": 0, "longitude": 0, "radius_km": -5}`,
			"malformed body":         `{"latitude": `,
		} {
			t.Run(name, func(t *testing.T) {
				rec := do(t, srv, http.MethodPost, "/api/earthquakes/search/radius", body)
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			})
		}
	})
}

func TestSearchRegion(t *testing.T) {
	t.Run("valid polygon", func(t *testing.T) {
		srv := newTestServer()
		srv.catalog.polygonResult = []domain.Event{{ID: "ev1"}}

		rec := do(t, srv, http.MethodPost, "/api/earthquakes/search/region",
			`{"polygon_wkt": "POLYGON((0 0, 0 10, 10 10, 10 0, 0 0))"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "POLYGON((0 0, 0 10, 10 10, 10 0, 0 0))", srv.catalog.polygonWKT)
	})

	t.Run("malformed WKT is a client error", func(t *testing.T) {
		srv := newTestServer()
		srv.catalog.polygonErr = domain.ErrInvalidGeometry

		rec := do(t, srv, http.MethodPost, "/api/earthquakes/search/region",
			`{"polygon_wkt": "POLYGON((0 0"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBoundary(t *testing.T) {
	t.Run("stats for ids", func(t *testing.T) {
		srv := newTestServer()
		srv.catalog.boundaryResult = domain.BoundaryStats{
			TotalCount:  1,
			CenterPoint: "POINT(1 2)",
			BoundingBox: "POINT(1 2)",
			ConvexHull:  "POINT(1 2)",
		}

		rec := do(t, srv, http.MethodPost, "/api/earthquakes/boundary", `["ev1"]`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"ev1"}, srv.catalog.boundaryIDs)

		var stats domain.BoundaryStats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, 1, stats.TotalCount)
		assert.Equal(t, 0.0, stats.AreaKm2)
	})

	t.Run("no matching events is 404", func(t *testing.T) {
		srv := newTestServer()
		srv.catalog.boundaryErr = domain.ErrNoEvents

		rec := do(t, srv, http.MethodPost, "/api/earthquakes/boundary", `[]`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestStats(t *testing.T) {
	srv := newTestServer()
	srv.stats.summary = domain.Summary{
		TotalEarthquakes: 42,
		MagnitudeStats:   domain.RangeStats{Average: 2.9, Maximum: 6.4, Minimum: 0.3},
		Recent24h:        7,
	}

	rec := do(t, srv, http.MethodGet, "/api/earthquakes/stats", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var sum domain.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 42, sum.TotalEarthquakes)
	assert.Equal(t, 7, sum.Recent24h)
}

func TestSync(t *testing.T) {
	t.Run("reports counters", func(t *testing.T) {
		srv := newTestServer()
		srv.syncer.result = ingest.Result{Processed: 10, Inserted: 3, Skipped: 7}

		rec := do(t, srv, http.MethodGet, "/api/earthquakes/sync", "")

		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, float64(10), body["processed"])
		assert.Equal(t, float64(3), body["inserted"])
		assert.Equal(t, float64(7), body["skipped"])
	})

	t.Run("feed failure is an internal error", func(t *testing.T) {
		srv := newTestServer()
		srv.syncer.err = errors.New("feed unavailable")

		rec := do(t, srv, http.MethodGet, "/api/earthquakes/sync", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestCORS(t *testing.T) {
	srv := newTestServer()

	rec := do(t, srv, http.MethodGet, "/api/earthquakes", "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, srv, http.MethodOptions, "/api/earthquakes/search/radius", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer()
	rec := do(t, srv, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
