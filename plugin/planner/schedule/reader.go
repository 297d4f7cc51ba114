// Package schedule provides cached, read-through access to daily schedules.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hrygo/planweaver/plugin/planner/cache"
	"github.com/hrygo/planweaver/store"
)

const cachePrefix = "schedule:"

// Store is the subset of the schedule store the reader needs.
type Store interface {
	GetScheduleByDate(ctx context.Context, date string) (*store.DailySchedule, error)
}

// Reader serves schedule lookups through the LRU cache, falling back to the
// store on a miss and repopulating the cache. Writers invalidate the date key
// instead of writing through, so a regenerated schedule is never shadowed by
// a stale entry.
type Reader struct {
	store    Store
	cache    cache.CacheService
	ttl      time.Duration
	location *time.Location
}

// NewReader creates a read-through schedule reader.
func NewReader(s Store, c cache.CacheService, ttl time.Duration, location *time.Location) *Reader {
	if location == nil {
		location = time.Local
	}
	return &Reader{
		store:    s,
		cache:    c,
		ttl:      ttl,
		location: location,
	}
}

// GetByDate returns the schedule for a date, consulting the cache first.
// Misses fall through to the store; store.ErrScheduleNotFound passes through.
func (r *Reader) GetByDate(ctx context.Context, date string) (*store.DailySchedule, error) {
	key := cachePrefix + date

	if data, ok := r.cache.Get(ctx, key); ok {
		var cached store.DailySchedule
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
		// Corrupt entry, drop it and fall through to the store.
		slog.Warn("dropping unreadable cache entry", "key", key)
		_ = r.cache.Invalidate(ctx, key)
	}

	sched, err := r.store.GetScheduleByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(sched); err == nil {
		_ = r.cache.Set(ctx, key, data, r.ttl)
	}

	return sched, nil
}

// InvalidateDate removes the cache entry for a date. Called after every
// store write for that date, before the write is reported to the caller.
func (r *Reader) InvalidateDate(ctx context.Context, date string) {
	if err := r.cache.Invalidate(ctx, cachePrefix+date); err != nil {
		slog.Warn("failed to invalidate schedule cache", "date", date, "error", err)
	}
}

// Stats exposes the underlying cache counters.
func (r *Reader) Stats(ctx context.Context) cache.Stats {
	return r.cache.Stats(ctx)
}

// Snapshot is the current position within a day's plan.
type Snapshot struct {
	Date     string
	Current  *store.Activity
	Upcoming []store.Activity
}

// SnapshotAt resolves the plan position for the given instant, in the
// reader's timezone. Returns store.ErrScheduleNotFound when the day has
// no schedule.
func (r *Reader) SnapshotAt(ctx context.Context, at time.Time) (*Snapshot, error) {
	local := at.In(r.location)
	date := local.Format(store.DateLayout)

	sched, err := r.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	minuteOfDay := local.Hour()*60 + local.Minute()
	return &Snapshot{
		Date:     date,
		Current:  sched.ActivityAt(minuteOfDay),
		Upcoming: sched.UpcomingAfter(minuteOfDay),
	}, nil
}

// HasScheduleFor reports whether a schedule exists for the date, without
// treating the miss as an error.
func (r *Reader) HasScheduleFor(ctx context.Context, date string) (bool, error) {
	_, err := r.GetByDate(ctx, date)
	if errors.Is(err, store.ErrScheduleNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
