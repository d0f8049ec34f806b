// Package postgres implements the earthquake catalog repository and spatial
// query engine on PostgreSQL with the PostGIS extension. Distance, containment,
// and area computations are delegated to PostGIS so they stay geodesic
// (geography type) rather than planar.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"

	"github.com/quakewatch/quake-api/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the PostGIS-backed event repository. All operations acquire a
// connection from the pool for their duration and release it unconditionally.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

// Open connects to the database at the given URL, configures the connection
// pool, and runs any pending migrations.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, clock: clockwork.NewRealClock()}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// CheckReadiness reports whether the backing database is reachable.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// WithinTx runs fn against a single transaction. The transaction is committed
// only if fn returns nil; every other exit path rolls back, so an abandoned
// ingestion batch never leaves partial writes.
func (s *Store) WithinTx(ctx context.Context, fn func(domain.EventWriter) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&ingestTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ingestTx implements domain.EventWriter inside one batch transaction.
type ingestTx struct {
	tx *sql.Tx
}

// Exists reports whether an event with the given id is already stored. It is
// an optimization only; the unique primary key remains the authoritative
// dedup guard.
func (t *ingestTx) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM earthquakes WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check existing event: %w", err)
	}
	return true, nil
}

// Insert persists one event. It reports false when the row was absorbed by
// the duplicate-id conflict guard. The statement runs under a savepoint: a
// failed insert would otherwise poison the whole batch transaction, and one
// bad record must never abort the batch.
func (t *ingestTx) Insert(ctx context.Context, e domain.Event) (bool, error) {
	if _, err := t.tx.ExecContext(ctx, `SAVEPOINT ingest_record`); err != nil {
		return false, fmt.Errorf("savepoint: %w", err)
	}

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO earthquakes (id, magnitude, place, time, updated, depth, location, url, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, ST_SetSRID(ST_MakePoint($7, $8), 4326)::geography, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		e.ID,
		nullFloat(e.Magnitude),
		nullString(e.Place),
		nullTimePtr(e.OccurredAt),
		nullTimePtr(e.UpdatedAt),
		nullFloat(e.Depth),
		e.Longitude,
		e.Latitude,
		nullString(e.SourceURL),
		nullString(e.DetailURL),
		e.IngestedAt,
	)
	if err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT ingest_record`); rbErr != nil {
			return false, errors.Join(fmt.Errorf("insert event: %w", err), fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		return false, fmt.Errorf("insert event: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, `RELEASE SAVEPOINT ingest_record`); err != nil {
		return false, fmt.Errorf("release savepoint: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
