// Package store provides durable keyed storage for daily schedules.
package store

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/planweaver/internal/profile"
)

// ErrScheduleNotFound marks the expected miss case: no schedule exists for the
// requested key. Callers check it with errors.Is and must not log it as a failure.
var ErrScheduleNotFound = errors.New("schedule not found")

// Store provides database access to daily schedules.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Migrate bootstraps the schema if the database is not initialized.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check database state")
	}
	if initialized {
		return nil
	}
	if err := s.driver.Migrate(ctx); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}

// GetScheduleByDate returns the schedule for a calendar date, or ErrScheduleNotFound.
func (s *Store) GetScheduleByDate(ctx context.Context, date string) (*DailySchedule, error) {
	return s.getSchedule(ctx, &FindSchedule{Date: &date})
}

// GetScheduleByUID returns the schedule with the given stable identifier,
// or ErrScheduleNotFound.
func (s *Store) GetScheduleByUID(ctx context.Context, uid string) (*DailySchedule, error) {
	return s.getSchedule(ctx, &FindSchedule{UID: &uid})
}

func (s *Store) getSchedule(ctx context.Context, find *FindSchedule) (*DailySchedule, error) {
	list, err := s.driver.ListSchedules(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrScheduleNotFound
	}
	return list[0], nil
}

// UpsertSchedule writes the schedule for its date, overwriting any existing one.
func (s *Store) UpsertSchedule(ctx context.Context, upsert *DailySchedule) (*DailySchedule, error) {
	if upsert.Date == "" {
		return nil, errors.New("schedule date is required")
	}
	if upsert.UID == "" {
		upsert.UID = shortuuid.New()
	}
	upsert.SortActivities()
	return s.driver.UpsertSchedule(ctx, upsert)
}

// ListRecentSchedules returns up to n schedules, most recent date first.
func (s *Store) ListRecentSchedules(ctx context.Context, n int) ([]*DailySchedule, error) {
	return s.driver.ListSchedules(ctx, &FindSchedule{Limit: &n})
}

// DeleteSchedule removes the schedule with the given identifier.
func (s *Store) DeleteSchedule(ctx context.Context, uid string) error {
	return s.driver.DeleteSchedule(ctx, &DeleteSchedule{UID: uid})
}

// DeleteSchedulesBefore removes schedules older than the retention period.
// Returns the number of rows removed.
func (s *Store) DeleteSchedulesBefore(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, errors.Errorf("retention days must be positive, got %d", days)
	}
	cutoff := time.Now().In(s.profile.Location()).AddDate(0, 0, -days).Format(DateLayout)
	return s.driver.DeleteSchedulesBefore(ctx, cutoff)
}

// DateLayout is the calendar-date key format for daily schedules.
const DateLayout = "2006-01-02"
