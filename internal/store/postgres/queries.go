package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/quakewatch/quake-api/internal/domain"
)

// eventColumns is the column list used for SELECT statements on the
// earthquakes table. Latitude and longitude are unpacked from the geography
// column so rows scan into plain floats.
const eventColumns = `id, magnitude, place, time, updated, depth,
	ST_Y(location::geometry) AS latitude,
	ST_X(location::geometry) AS longitude,
	url, detail, created_at`

// List returns events ordered by occurrence time descending, nulls last.
// The limit always applies: limit 0 yields an empty slice, not "unlimited".
func (s *Store) List(ctx context.Context, limit int, minMagnitude *float64) ([]domain.Event, error) {
	if limit < 0 {
		return nil, fmt.Errorf("negative limit %d", limit)
	}

	query := `SELECT ` + eventColumns + ` FROM earthquakes`
	var args []any
	if minMagnitude != nil {
		args = append(args, *minMagnitude)
		query += ` WHERE magnitude >= $1`
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY time DESC NULLS LAST LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// SearchRadius returns events within radiusKm of the center, ordered by
// ascending geodesic distance. ST_DWithin on the geography column keeps the
// predicate index-accelerated and great-circle; a radius of zero matches only
// events at the exact point.
func (s *Store) SearchRadius(ctx context.Context, lat, lon, radiusKm float64) ([]domain.EventWithDistance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`,
			ROUND((ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) / 1000)::numeric, 2) AS distance_km
		FROM earthquakes
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3 * 1000)
		ORDER BY distance_km`,
		lon, lat, radiusKm,
	)
	if err != nil {
		return nil, fmt.Errorf("radius search: %w", err)
	}
	defer rows.Close()

	results := []domain.EventWithDistance{}
	for rows.Next() {
		r, err := scanEventWithDistance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan radius result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("radius search: %w", err)
	}
	return results, nil
}

// SearchPolygon returns events strictly inside the WKT polygon (SRID 4326).
// ST_Within excludes points that merely touch the boundary. Malformed WKT
// surfaces as domain.ErrInvalidGeometry; no repair is attempted.
func (s *Store) SearchPolygon(ctx context.Context, polygonWKT string) ([]domain.Event, error) {
	if strings.TrimSpace(polygonWKT) == "" {
		return nil, fmt.Errorf("%w: empty polygon text", domain.ErrInvalidGeometry)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM earthquakes
		WHERE ST_Within(location::geometry, ST_GeomFromText($1, 4326))`,
		polygonWKT,
	)
	if err != nil {
		return nil, classifyGeometryError(err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyGeometryError(err)
	}
	return events, nil
}

// BoundaryStats unions the located points for the given ids and derives the
// centroid, axis-aligned bounding box, convex hull (all as WKT), and the hull
// area measured on the geography, in km². An id set resolving to zero stored
// events, including the empty set, yields domain.ErrNoEvents.
func (s *Store) BoundaryStats(ctx context.Context, ids []string) (domain.BoundaryStats, error) {
	if len(ids) == 0 {
		return domain.BoundaryStats{}, domain.ErrNoEvents
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) AS total_count,
			ST_AsText(ST_Centroid(ST_Collect(location::geometry))) AS center_point,
			ST_AsText(ST_Envelope(ST_Collect(location::geometry))) AS bounding_box,
			ST_AsText(ST_ConvexHull(ST_Collect(location::geometry))) AS convex_hull,
			ST_Area(ST_ConvexHull(ST_Collect(location::geometry))::geography) / 1000000 AS area_km2
		FROM earthquakes
		WHERE id = ANY($1)`,
		pq.Array(ids),
	)

	var (
		total              int
		center, bbox, hull sql.NullString
		areaKm2            sql.NullFloat64
	)
	if err := row.Scan(&total, &center, &bbox, &hull, &areaKm2); err != nil {
		return domain.BoundaryStats{}, fmt.Errorf("boundary stats: %w", err)
	}
	if total == 0 {
		return domain.BoundaryStats{}, domain.ErrNoEvents
	}

	return domain.BoundaryStats{
		TotalCount:  total,
		CenterPoint: center.String,
		BoundingBox: bbox.String,
		ConvexHull:  hull.String,
		AreaKm2:     areaKm2.Float64,
	}, nil
}

// Summarize computes whole-table statistics. Aggregates over magnitude and
// depth ignore nulls and coalesce to zero on an empty selection; the recent
// count covers the trailing 24 hours of wall-clock now.
func (s *Store) Summarize(ctx context.Context) (domain.Summary, error) {
	since := s.clock.Now().Add(-24 * time.Hour)

	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) AS total,
			COALESCE(AVG(magnitude), 0) AS avg_magnitude,
			COALESCE(MAX(magnitude), 0) AS max_magnitude,
			COALESCE(MIN(magnitude), 0) AS min_magnitude,
			COALESCE(AVG(depth), 0) AS avg_depth,
			COALESCE(MAX(depth), 0) AS max_depth,
			COALESCE(MIN(depth), 0) AS min_depth,
			COUNT(*) FILTER (WHERE time >= $1) AS recent_24h
		FROM earthquakes`,
		since,
	)

	var sum domain.Summary
	if err := row.Scan(
		&sum.TotalEarthquakes,
		&sum.MagnitudeStats.Average,
		&sum.MagnitudeStats.Maximum,
		&sum.MagnitudeStats.Minimum,
		&sum.DepthStats.Average,
		&sum.DepthStats.Maximum,
		&sum.DepthStats.Minimum,
		&sum.Recent24h,
	); err != nil {
		return domain.Summary{}, fmt.Errorf("summarize: %w", err)
	}
	return sum, nil
}

// classifyGeometryError maps PostGIS text-parsing failures onto the domain
// sentinel so callers can distinguish a client's malformed WKT from a store
// outage.
func classifyGeometryError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		msg := strings.ToLower(pqErr.Message)
		if strings.Contains(msg, "parse error") ||
			strings.Contains(msg, "invalid geometry") ||
			strings.Contains(msg, "unknown geometry type") ||
			strings.Contains(msg, "geometry requires more points") {
			return fmt.Errorf("%w: %s", domain.ErrInvalidGeometry, pqErr.Message)
		}
	}
	return fmt.Errorf("polygon search: %w", err)
}
