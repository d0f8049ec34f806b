package usgs_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quakewatch/quake-api/internal/adapter/usgs"
)

const feedFixture = `{
	"type": "FeatureCollection",
	"metadata": {"generated": 1717406000000, "title": "USGS All Earthquakes, Past Day", "count": 2},
	"features": [
		{
			"type": "Feature",
			"id": "us7000abcd",
			"properties": {"mag": 4.7, "place": "south of Fiji", "time": 1717405200000, "ids": ",us7000abcd,"},
			"geometry": {"type": "Point", "coordinates": [178.1, -24.9, 540.2]}
		},
		{
			"type": "Feature",
			"id": "nc75012345",
			"properties": {"mag": null, "place": "The Geysers, CA"},
			"geometry": {"type": "Point", "coordinates": [-122.839, 38.832]}
		}
	]
}`

func TestFetchFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(feedFixture)) //nolint:errcheck
	}))
	defer srv.Close()

	c := usgs.NewClient(srv.URL, 5*time.Second, slog.Default())
	fc, err := c.FetchFeed(context.Background())
	require.NoError(t, err)

	require.Len(t, fc.Features, 2)
	assert.Equal(t, "USGS All Earthquakes, Past Day", fc.Metadata.Title)

	first := fc.Features[0]
	require.NotNil(t, first.Properties.Mag)
	assert.Equal(t, 4.7, *first.Properties.Mag)
	assert.Equal(t, []float64{178.1, -24.9, 540.2}, first.Geometry.Coordinates)

	// Null magnitude decodes to nil, not zero.
	assert.Nil(t, fc.Features[1].Properties.Mag)
}

func TestFetchFeedNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := usgs.NewClient(srv.URL, 5*time.Second, slog.Default())
	_, err := c.FetchFeed(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchFeedMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("{not json")) //nolint:errcheck
	}))
	defer srv.Close()

	c := usgs.NewClient(srv.URL, 5*time.Second, slog.Default())
	_, err := c.FetchFeed(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode feed")
}

func TestFetchFeedContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := usgs.NewClient(srv.URL, 5*time.Second, slog.Default())
	_, err := c.FetchFeed(ctx)
	require.Error(t, err)
}
