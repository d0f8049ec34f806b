package domain

import (
	"context"
	"time"
)

// Event is a single cataloged earthquake. Rows are written once at ingestion
// and never updated; nullable feed fields stay nullable here as pointers.
type Event struct {
	ID         string     `json:"id"`
	Magnitude  *float64   `json:"magnitude"`
	Place      string     `json:"place,omitempty"`
	OccurredAt *time.Time `json:"time"`
	UpdatedAt  *time.Time `json:"updated,omitempty"`
	Depth      *float64   `json:"depth"`
	Longitude  float64    `json:"longitude"`
	Latitude   float64    `json:"latitude"`
	SourceURL  string     `json:"url,omitempty"`
	DetailURL  string     `json:"detail,omitempty"`
	IngestedAt time.Time  `json:"-"`
}

// EventWithDistance is a radius-search result row: the event plus its geodesic
// distance from the search center, in kilometers.
type EventWithDistance struct {
	Event
	DistanceKm float64 `json:"distance_km"`
}

// BoundaryStats aggregates the geometry of a named set of events. The shape
// fields are WKT. Area is measured on the geography (geodesic), in km².
type BoundaryStats struct {
	TotalCount  int     `json:"total_count"`
	CenterPoint string  `json:"center_point"`
	BoundingBox string  `json:"bounding_box"`
	ConvexHull  string  `json:"convex_hull"`
	AreaKm2     float64 `json:"area_km2"`
}

// RangeStats holds min/avg/max over a nullable numeric column. All fields are
// zero, not null, when no rows carry a value.
type RangeStats struct {
	Average float64 `json:"average"`
	Maximum float64 `json:"maximum"`
	Minimum float64 `json:"minimum"`
}

// Summary is the whole-table statistics view. Recent24h counts events whose
// occurrence time falls within the trailing 24 hours of wall-clock now, so
// the value is time-dependent across calls.
type Summary struct {
	TotalEarthquakes int        `json:"total_earthquakes"`
	MagnitudeStats   RangeStats `json:"magnitude_stats"`
	DepthStats       RangeStats `json:"depth_stats"`
	Recent24h        int        `json:"recent_24h"`
}

// EventWriter is the write-side repository surface available inside a single
// ingestion transaction. Insert reports false for rows absorbed by the
// duplicate-id guard; it never fails on a duplicate.
type EventWriter interface {
	Exists(ctx context.Context, id string) (bool, error)
	Insert(ctx context.Context, event Event) (bool, error)
}
