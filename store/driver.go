package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that a store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)
	Migrate(ctx context.Context) error

	// DailySchedule model related methods.
	UpsertSchedule(ctx context.Context, upsert *DailySchedule) (*DailySchedule, error)
	ListSchedules(ctx context.Context, find *FindSchedule) ([]*DailySchedule, error)
	DeleteSchedule(ctx context.Context, delete *DeleteSchedule) error
	DeleteSchedulesBefore(ctx context.Context, cutoffDate string) (int64, error)
}
