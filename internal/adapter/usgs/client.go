// Package usgs fetches the USGS earthquake GeoJSON summary feed.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/quakewatch/quake-api/internal/domain"
)

// Client implements ingest.FeedFetcher against the USGS summary feed.
type Client struct {
	feedURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a feed client for the given summary feed URL.
func NewClient(feedURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		feedURL: feedURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchFeed pulls and decodes the current feed document.
func (c *Client) FetchFeed(ctx context.Context) (domain.FeatureCollection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.FeatureCollection{}, fmt.Errorf("feed returned status %d: %s", resp.StatusCode, body)
	}

	var fc domain.FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("decode feed: %w", err)
	}

	c.logger.Debug("feed fetched", "url", c.feedURL, "features", len(fc.Features))
	return fc, nil
}
