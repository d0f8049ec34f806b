package domain

import (
	"fmt"
	"strings"
	"time"
)

// FeatureCollection is the top-level USGS GeoJSON summary feed document.
type FeatureCollection struct {
	Type     string       `json:"type"`
	Metadata FeedMetadata `json:"metadata"`
	Features []Feature    `json:"features"`
}

// FeedMetadata describes the feed document itself.
type FeedMetadata struct {
	Generated int64  `json:"generated"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Count     int    `json:"count"`
}

// Feature is one GeoJSON feature from the feed.
type Feature struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Properties FeatureProperties `json:"properties"`
	Geometry   Geometry          `json:"geometry"`
}

// FeatureProperties carries the subset of USGS properties the catalog keeps.
// Times are milliseconds since the Unix epoch; pointers distinguish absent
// fields from zero values.
type FeatureProperties struct {
	Mag     *float64 `json:"mag"`
	Place   string   `json:"place"`
	Time    *int64   `json:"time"`
	Updated *int64   `json:"updated"`
	URL     string   `json:"url"`
	Detail  string   `json:"detail"`
	IDs     string   `json:"ids"`
}

// Geometry is a GeoJSON geometry. Coordinates follow GeoJSON position order:
// [longitude, latitude, depth-km].
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// ResolveEventID returns the catalog id for a feature: the first non-empty
// trimmed token of the comma-delimited "ids" property, falling back to the
// feature's own id. Empty string means the feature is unidentifiable.
func ResolveEventID(f Feature) string {
	for _, tok := range strings.Split(f.Properties.IDs, ",") {
		if id := strings.TrimSpace(tok); id != "" {
			return id
		}
	}
	return strings.TrimSpace(f.ID)
}

// ParseFeature converts a feed feature into an Event ready for insertion.
// Failures are classified with the skip sentinels (ErrUnsupportedGeometry,
// ErrMissingID, ErrInvalidCoordinates) so the ingestion pipeline can count
// them without aborting the batch.
func ParseFeature(f Feature) (Event, error) {
	if f.Geometry.Type != "Point" {
		return Event{}, fmt.Errorf("%w: %q", ErrUnsupportedGeometry, f.Geometry.Type)
	}

	id := ResolveEventID(f)
	if id == "" {
		return Event{}, ErrMissingID
	}

	coords := f.Geometry.Coordinates
	if len(coords) < 2 {
		return Event{}, fmt.Errorf("%w: got %d ordinates", ErrInvalidCoordinates, len(coords))
	}
	lon, lat := coords[0], coords[1]
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return Event{}, fmt.Errorf("%w: lon=%v lat=%v", ErrInvalidCoordinates, lon, lat)
	}

	var depth *float64
	if len(coords) > 2 {
		d := coords[2]
		depth = &d
	}

	return Event{
		ID:         id,
		Magnitude:  f.Properties.Mag,
		Place:      f.Properties.Place,
		OccurredAt: epochMillisToTime(f.Properties.Time),
		UpdatedAt:  epochMillisToTime(f.Properties.Updated),
		Depth:      depth,
		Longitude:  lon,
		Latitude:   lat,
		SourceURL:  f.Properties.URL,
		DetailURL:  f.Properties.Detail,
		IngestedAt: clock.Now().UTC(),
	}, nil
}

// epochMillisToTime converts optional feed milliseconds to an absolute UTC
// timestamp. Absence propagates as nil.
func epochMillisToTime(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}
