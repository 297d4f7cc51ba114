// Package postgres implements the store driver on lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/planweaver/internal/profile"
	"github.com/hrygo/planweaver/store"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
)

// DB is the postgres-backed store driver.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a postgres database using the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	sqlDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{db: sqlDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// IsInitialized checks whether the schedule table exists.
func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'daily_schedule')`,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

const latestSchema = `
CREATE TABLE IF NOT EXISTS daily_schedule (
	id SERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	date TEXT NOT NULL UNIQUE,
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL,
	rounds_used INTEGER NOT NULL DEFAULT 1,
	quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	model TEXT NOT NULL DEFAULT '',
	provider TEXT NOT NULL DEFAULT '',
	activities TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_daily_schedule_date ON daily_schedule (date);
`

// Migrate applies the latest schema.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, latestSchema)
	return err
}

// placeholder returns a parameter placeholder for PostgreSQL (uses $1, $2, ...).
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns n parameter placeholders.
func placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}
