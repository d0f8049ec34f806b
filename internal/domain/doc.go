// Package domain models earthquake events sourced from the USGS real-time feed.
//
// # Data Source
//
// Events originate from the USGS Earthquake Hazards Program GeoJSON summary
// feeds, e.g. https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson.
// Each feed document is a GeoJSON FeatureCollection of point features whose
// properties carry magnitude, a human-readable place string, event and update
// times, and links back to the USGS event pages.
//
// # USGS Feed Conventions
//
// Identifiers:
//
//	The "ids" property is a comma-delimited list with leading and trailing
//	separators, e.g. ",us7000abcd,nn00898840,". The first non-empty token is
//	the preferred catalog id. Features that omit "ids" fall back to the
//	feature-level "id" field. A feature with neither is unidentifiable and
//	is skipped during ingestion.
//
// Coordinates:
//
//	GeoJSON position order: [longitude, latitude, depth]. Depth is kilometers
//	below the WGS84 ellipsoid reference and may be negative for events above
//	it. The third element is optional; when absent the event has no depth.
//
// Times:
//
//	"time" and "updated" are integer milliseconds since the Unix epoch, UTC.
//	Either may be absent; absence yields a null timestamp, not a parse error.
//
// Magnitude:
//
//	"mag" is a decimal that may be null for events still awaiting review.
//
// # Identity and Idempotence
//
// The resolved id is the event's primary key and is stable across repeated
// feed pulls, which makes ingestion idempotent: re-processing a feed document
// re-resolves the same ids and the repository skips rows it already holds
// (ON CONFLICT DO NOTHING at the store level is the authoritative guard).
// Events are never mutated after insertion; there is no update path.
package domain
