package postgres

import (
	"database/sql"
	"time"

	"github.com/quakewatch/quake-api/internal/domain"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanEvent scans a single row into a domain.Event. The row must contain
// columns in the order defined by eventColumns. Latitude, longitude, and
// created_at are non-nullable; an unexpected null fails the scan immediately
// rather than producing a half-populated event.
func scanEvent(row scannable) (domain.Event, error) {
	var (
		e         domain.Event
		magnitude sql.NullFloat64
		place     sql.NullString
		occurred  sql.NullTime
		updated   sql.NullTime
		depth     sql.NullFloat64
		url       sql.NullString
		detail    sql.NullString
	)

	err := row.Scan(
		&e.ID,
		&magnitude,
		&place,
		&occurred,
		&updated,
		&depth,
		&e.Latitude,
		&e.Longitude,
		&url,
		&detail,
		&e.IngestedAt,
	)
	if err != nil {
		return domain.Event{}, err
	}

	e.Magnitude = floatPtr(magnitude)
	e.Place = place.String
	e.OccurredAt = timePtr(occurred)
	e.UpdatedAt = timePtr(updated)
	e.Depth = floatPtr(depth)
	e.SourceURL = url.String
	e.DetailURL = detail.String
	return e, nil
}

// scanEventWithDistance scans an eventColumns row with a trailing distance_km.
func scanEventWithDistance(row scannable) (domain.EventWithDistance, error) {
	var (
		r         domain.EventWithDistance
		magnitude sql.NullFloat64
		place     sql.NullString
		occurred  sql.NullTime
		updated   sql.NullTime
		depth     sql.NullFloat64
		url       sql.NullString
		detail    sql.NullString
	)

	err := row.Scan(
		&r.ID,
		&magnitude,
		&place,
		&occurred,
		&updated,
		&depth,
		&r.Latitude,
		&r.Longitude,
		&url,
		&detail,
		&r.IngestedAt,
		&r.DistanceKm,
	)
	if err != nil {
		return domain.EventWithDistance{}, err
	}

	r.Magnitude = floatPtr(magnitude)
	r.Place = place.String
	r.OccurredAt = timePtr(occurred)
	r.UpdatedAt = timePtr(updated)
	r.Depth = floatPtr(depth)
	r.SourceURL = url.String
	r.DetailURL = detail.String
	return r, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
