package domain

import "errors"

// Sentinel errors shared across the store, ingestion, and HTTP layers.
// Callers classify with errors.Is; wrapped variants carry detail.
var (
	// ErrNoEvents means a boundary-stats id set resolved to zero stored
	// events, including the empty set. Distinct from a store failure.
	ErrNoEvents = errors.New("no events match the given ids")

	// ErrInvalidGeometry means query geometry text could not be parsed
	// (malformed WKT). No repair is attempted.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrUnsupportedGeometry marks a feed feature whose geometry is not a
	// point. Such features are skipped, never partially ingested.
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")

	// ErrMissingID marks a feed feature with no resolvable event id.
	ErrMissingID = errors.New("missing event id")

	// ErrInvalidCoordinates marks a feed feature whose position is absent or
	// outside the WGS84 longitude/latitude range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)
