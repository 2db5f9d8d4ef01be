// Package postgres implements docstore.Adapter backed by PostgreSQL, using
// a JSONB column to hold the opaque configuration payload and a
// (tenant, namespace, resource, context, version) unique constraint so a
// document's history is never overwritten. Every prior version is
// retained as a row with is_latest = false; only the is_latest row at a
// given doc_key is the target of keyed Upsert/Update.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/hypertrace/config-service-go/internal/docstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Adapter implements docstore.Adapter backed by PostgreSQL.
type Adapter struct {
	db *sql.DB
}

var _ docstore.Adapter = (*Adapter)(nil)

// Options configures the connection pool. MaxPoolSize mirrors the
// document.store.maxPoolSize config key; zero or negative means 25.
type Options struct {
	MaxPoolSize int
}

// New opens a connection to the PostgreSQL database at databaseURL,
// configures the pool, and runs any pending migrations.
func New(databaseURL string, opts Options) (*Adapter, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	maxPool := opts.MaxPoolSize
	if maxPool <= 0 {
		maxPool = 25
	}
	db.SetMaxOpenConns(maxPool)
	db.SetMaxIdleConns(min(5, maxPool))
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Adapter{db: db}, nil
}

// NewFromDB wraps an already-open *sql.DB (used by tests with sqlmock,
// where migrations and connection setup are irrelevant).
func NewFromDB(db *sql.DB) *Adapter {
	return &Adapter{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
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

// Close closes the underlying database connection.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// HealthCheck pings the database.
func (a *Adapter) HealthCheck(ctx context.Context) bool {
	return a.db.PingContext(ctx) == nil
}
