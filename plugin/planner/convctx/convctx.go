// Package convctx tracks recent conversation turns per user so injection
// decisions can account for what the user was just told.
package convctx

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Turn is one user message together with the injection decision made for it.
type Turn struct {
	ID       string    `json:"id"`
	Message  string    `json:"message"`
	Injected bool      `json:"injected"`
	Activity string    `json:"activity"` // activity title current at decision time
	Intent   string    `json:"intent"`
	At       time.Time `json:"at"`
}

// Stats summarizes cache occupancy and injection history.
type Stats struct {
	Users         int `json:"users"`
	Turns         int `json:"turns"`
	InjectedTurns int `json:"injected_turns"`
}

// Cache keeps a short bounded history per user. Turns expire after the
// context TTL; topic continuity uses the much shorter continuity window.
// The two settings are independent: a turn can still be in context (so
// deduplication applies) long after the conversation stopped counting as
// an ongoing schedule topic.
type Cache struct {
	maxTurns   int
	ttl        time.Duration
	continuity time.Duration

	mu    sync.Mutex
	users map[string][]Turn

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates the cache and starts its background expiry sweep.
func New(maxTurns int, ttl, continuity time.Duration) *Cache {
	if maxTurns <= 0 {
		maxTurns = 3
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if continuity <= 0 {
		continuity = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		maxTurns:   maxTurns,
		ttl:        ttl,
		continuity: continuity,
		users:      make(map[string][]Turn),
		ctx:        ctx,
		cancel:     cancel,
	}

	c.wg.Add(1)
	go c.sweepLoop()
	return c
}

// Close stops the expiry sweep.
func (c *Cache) Close() {
	c.cancel()
	c.wg.Wait()
}

// AddTurn records a turn for the user, dropping the oldest once the per-user
// bound is reached. A missing turn ID is filled in.
func (c *Cache) AddTurn(userID string, t Turn) Turn {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.At.IsZero() {
		t.At = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	turns := c.pruneLocked(userID, time.Now())
	turns = append(turns, t)
	if len(turns) > c.maxTurns {
		turns = turns[len(turns)-c.maxTurns:]
	}
	c.users[userID] = turns
	return t
}

// RecentTurns returns the user's unexpired turns, oldest first.
func (c *Cache) RecentTurns(userID string, now time.Time) []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	turns := c.pruneLocked(userID, now)
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// IsTopicOngoing reports whether the schedule topic is still live for the
// user: at least one of the last two turns carried an injection, and the
// most recent turn happened within the continuity window.
func (c *Cache) IsTopicOngoing(userID string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	turns := c.pruneLocked(userID, now)
	if len(turns) == 0 {
		return false
	}

	last := turns[len(turns)-1]
	if now.Sub(last.At) > c.continuity {
		return false
	}

	recent := turns
	if len(recent) > 2 {
		recent = recent[len(recent)-2:]
	}
	for _, t := range recent {
		if t.Injected {
			return true
		}
	}
	return false
}

// LastInjected returns the most recent unexpired turn that carried an
// injection, or nil.
func (c *Cache) LastInjected(userID string, now time.Time) *Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	turns := c.pruneLocked(userID, now)
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Injected {
			t := turns[i]
			return &t
		}
	}
	return nil
}

// LastActivity returns the activity recorded on the user's most recent
// unexpired turn, injected or not.
func (c *Cache) LastActivity(userID string, now time.Time) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	turns := c.pruneLocked(userID, now)
	if len(turns) == 0 {
		return ""
	}
	return turns[len(turns)-1].Activity
}

// ShouldContinueInject decides whether an ongoing conversation forces an
// injection that the per-turn rules would otherwise skip. It fires when the
// schedule topic is still live, or when the activity changed since the
// user's last turn. The returned reason is empty when the answer is no.
func (c *Cache) ShouldContinueInject(userID, currentActivity string, now time.Time) (bool, string) {
	if c.IsTopicOngoing(userID, now) {
		return true, "schedule topic ongoing"
	}
	last := c.LastActivity(userID, now)
	if last != "" && currentActivity != "" && last != currentActivity {
		return true, "activity changed: " + last + " -> " + currentActivity
	}
	return false, ""
}

// Stats counts users and turns currently held.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var s Stats
	for userID := range c.users {
		turns := c.pruneLocked(userID, now)
		if len(turns) == 0 {
			continue
		}
		s.Users++
		s.Turns += len(turns)
		for _, t := range turns {
			if t.Injected {
				s.InjectedTurns++
			}
		}
	}
	return s
}

// pruneLocked drops the user's expired turns and deletes empty users.
// Caller holds c.mu.
func (c *Cache) pruneLocked(userID string, now time.Time) []Turn {
	turns := c.users[userID]
	cutoff := now.Add(-c.ttl)
	i := 0
	for i < len(turns) && turns[i].At.Before(cutoff) {
		i++
	}
	turns = turns[i:]
	if len(turns) == 0 {
		delete(c.users, userID)
		return nil
	}
	c.users[userID] = turns
	return turns
}

func (c *Cache) sweepLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for userID := range c.users {
				c.pruneLocked(userID, now)
			}
			c.mu.Unlock()
		}
	}
}
