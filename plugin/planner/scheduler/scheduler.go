// Package scheduler drives unattended daily schedule generation.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hrygo/planweaver/internal/profile"
	"github.com/hrygo/planweaver/store"
)

// Generate produces (or returns) the schedule for a date.
type Generate interface {
	Generate(ctx context.Context, date string, force bool) (*store.DailySchedule, error)
}

// Retention deletes schedules older than the retention horizon.
type Retention interface {
	DeleteSchedulesBefore(ctx context.Context, days int) (int64, error)
}

// Scheduler fires once per day at the configured local time, generating the
// day's schedule if it does not exist yet and sweeping out schedules past
// the retention horizon.
type Scheduler struct {
	profile   *profile.Profile
	generator Generate
	retention Retention

	fireAt profile.Clock

	mu      sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// New creates a scheduler. It does not start until Start is called.
func New(p *profile.Profile, g Generate, r Retention) (*Scheduler, error) {
	fireAt, err := profile.ParseClock(p.AutoScheduleTime)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		profile:   p,
		generator: g,
		retention: r,
		fireAt:    fireAt,
	}, nil
}

// Start launches the timer loop. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.run(s.stopCh)

	slog.Info("auto scheduler started",
		"fire_at", s.profile.AutoScheduleTime, "timezone", s.profile.Timezone)
}

// Stop halts the timer loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("auto scheduler stopped")
}

func (s *Scheduler) run(stopCh chan struct{}) {
	defer s.wg.Done()

	for {
		wait := time.Until(s.nextFire(time.Now()))
		timer := time.NewTimer(wait)
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
			s.tick()
		}
	}
}

// nextFire returns the next occurrence of the fire time in the configured
// timezone, strictly after now.
func (s *Scheduler) nextFire(now time.Time) time.Time {
	loc := s.profile.Location()
	local := now.In(loc)
	fire := time.Date(local.Year(), local.Month(), local.Day(), s.fireAt.Hour(), s.fireAt.Minute(), 0, 0, loc)
	if !fire.After(local) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.profile.GenerationTimeout)
	defer cancel()

	date := time.Now().In(s.profile.Location()).Format(store.DateLayout)
	if _, err := s.generator.Generate(ctx, date, false); err != nil {
		slog.Error("auto schedule generation failed", "date", date, "error", err)
	}

	s.sweep(ctx)
}

// TriggerNow runs one generation pass immediately, outside the timer.
// Used by the HTTP surface and by startup catch-up.
func (s *Scheduler) TriggerNow(ctx context.Context, force bool) (*store.DailySchedule, error) {
	date := time.Now().In(s.profile.Location()).Format(store.DateLayout)
	return s.generator.Generate(ctx, date, force)
}

func (s *Scheduler) sweep(ctx context.Context) {
	if s.retention == nil || s.profile.RetentionDays <= 0 {
		return
	}
	n, err := s.retention.DeleteSchedulesBefore(ctx, s.profile.RetentionDays)
	if err != nil {
		slog.Error("schedule retention sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("schedule retention sweep", "deleted", n)
	}
}
