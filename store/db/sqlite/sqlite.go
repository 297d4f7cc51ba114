// Package sqlite implements the store driver on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/planweaver/internal/profile"
	"github.com/hrygo/planweaver/store"

	// Import the pure-Go SQLite driver.
	_ "modernc.org/sqlite"
)

// DB is the sqlite-backed store driver.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a sqlite database using the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	// WAL keeps concurrent readers from blocking the writer; busy_timeout
	// bounds lock waits instead of failing immediately.
	dsn := profile.DSN + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %q", profile.DSN)
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
	var count int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'daily_schedule'`,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

const latestSchema = `
CREATE TABLE IF NOT EXISTS daily_schedule (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	date TEXT NOT NULL UNIQUE,
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL,
	rounds_used INTEGER NOT NULL DEFAULT 1,
	quality_score REAL NOT NULL DEFAULT 0,
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

// placeholder returns a parameter placeholder for SQLite (uses ?).
func placeholder(int) string {
	return "?"
}

// placeholders returns n parameter placeholders.
func placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}
