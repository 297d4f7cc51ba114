package convctx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCache() *Cache {
	return New(3, 10*time.Minute, time.Minute)
}

func TestAddTurnBoundsHistory(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	now := time.Now()
	for i := 0; i < 5; i++ {
		c.AddTurn("u1", Turn{Message: "m", At: now.Add(time.Duration(i) * time.Second)})
	}

	turns := c.RecentTurns("u1", now.Add(5*time.Second))
	require.Len(t, turns, 3)
	require.True(t, turns[0].At.Before(turns[2].At))
	require.NotEmpty(t, turns[0].ID)
}

func TestTurnsExpireAfterTTL(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	now := time.Now()
	c.AddTurn("u1", Turn{Message: "old", At: now.Add(-11 * time.Minute)})
	c.AddTurn("u1", Turn{Message: "fresh", At: now})

	turns := c.RecentTurns("u1", now)
	require.Len(t, turns, 1)
	require.Equal(t, "fresh", turns[0].Message)

	require.Empty(t, c.RecentTurns("u1", now.Add(11*time.Minute)))
}

func TestIsTopicOngoing(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	base := time.Now()
	c.AddTurn("u1", Turn{Message: "现在在干嘛", Injected: true, At: base})
	c.AddTurn("u1", Turn{Message: "哦哦", Injected: false, At: base.Add(30 * time.Second)})

	// Last turn 15s ago, injection within last two turns.
	require.True(t, c.IsTopicOngoing("u1", base.Add(45*time.Second)))

	// Last turn 90s ago, outside the continuity window.
	require.False(t, c.IsTopicOngoing("u1", base.Add(2*time.Minute)))
}

func TestIsTopicOngoingNeedsRecentInjection(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	base := time.Now()
	c.AddTurn("u1", Turn{Injected: true, At: base})
	c.AddTurn("u1", Turn{Injected: false, At: base.Add(10 * time.Second)})
	c.AddTurn("u1", Turn{Injected: false, At: base.Add(20 * time.Second)})

	// The injected turn has been pushed out of the last-two window.
	require.False(t, c.IsTopicOngoing("u1", base.Add(30*time.Second)))

	require.False(t, c.IsTopicOngoing("nobody", base))
}

func TestShouldContinueInject(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	base := time.Now()
	c.AddTurn("u1", Turn{Injected: true, Activity: "写代码", At: base})

	// Topic ongoing within the continuity window.
	ok, reason := c.ShouldContinueInject("u1", "写代码", base.Add(10*time.Second))
	require.True(t, ok)
	require.NotEmpty(t, reason)

	// Outside the window but the activity changed since the last turn.
	ok, reason = c.ShouldContinueInject("u1", "吃午饭", base.Add(2*time.Minute))
	require.True(t, ok)
	require.Contains(t, reason, "吃午饭")

	// Outside the window, same activity, no forcing.
	ok, _ = c.ShouldContinueInject("u1", "写代码", base.Add(2*time.Minute))
	require.False(t, ok)

	// Unknown user, nothing to continue.
	ok, _ = c.ShouldContinueInject("nobody", "写代码", base)
	require.False(t, ok)
}

func TestLastInjected(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	base := time.Now()
	require.Nil(t, c.LastInjected("u1", base))

	c.AddTurn("u1", Turn{Injected: true, Activity: "写代码", Intent: "query_current", At: base})
	c.AddTurn("u1", Turn{Injected: false, At: base.Add(time.Second)})

	last := c.LastInjected("u1", base.Add(2*time.Second))
	require.NotNil(t, last)
	require.Equal(t, "写代码", last.Activity)
	require.Equal(t, "query_current", last.Intent)
}

func TestStats(t *testing.T) {
	c := newTestCache()
	defer c.Close()

	now := time.Now()
	c.AddTurn("u1", Turn{Injected: true, At: now})
	c.AddTurn("u1", Turn{Injected: false, At: now})
	c.AddTurn("u2", Turn{Injected: true, At: now})

	s := c.Stats()
	require.Equal(t, 2, s.Users)
	require.Equal(t, 3, s.Turns)
	require.Equal(t, 2, s.InjectedTurns)
}
