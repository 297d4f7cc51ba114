package inject

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/planweaver/internal/profile"
	"github.com/hrygo/planweaver/plugin/planner/convctx"
	"github.com/hrygo/planweaver/plugin/planner/schedule"
	"github.com/hrygo/planweaver/store"
)

type fakeSnapshotter struct {
	mu   sync.Mutex
	snap *schedule.Snapshot
	err  error
}

func (f *fakeSnapshotter) SnapshotAt(context.Context, time.Time) (*schedule.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

type fakeBackfill struct {
	snapshotter *fakeSnapshotter
	filled      *schedule.Snapshot
	calls       int
}

func (f *fakeBackfill) Generate(context.Context, string, bool) (*store.DailySchedule, error) {
	f.calls++
	f.snapshotter.mu.Lock()
	f.snapshotter.snap = f.filled
	f.snapshotter.err = nil
	f.snapshotter.mu.Unlock()
	return &store.DailySchedule{}, nil
}

func workingSnapshot() *schedule.Snapshot {
	return &schedule.Snapshot{
		Date:    "2026-03-01",
		Current: &store.Activity{StartMinutes: 540, EndMinutes: 720, Title: "写代码", Description: "专心开发", Type: "工作"},
		Upcoming: []store.Activity{
			{StartMinutes: 720, EndMinutes: 780, Title: "吃午饭", Type: "饮食"},
			{StartMinutes: 900, EndMinutes: 960, Title: "运动", Type: "运动"},
		},
	}
}

func newRuleEngine(t *testing.T, snap *fakeSnapshotter) (*Engine, *convctx.Cache) {
	t.Helper()
	p := profile.Default()
	p.InjectMode = profile.InjectModeRule
	p.CasualInjectProb = 1.0

	strategy, err := StrategyForMode(p)
	require.NoError(t, err)

	cc := convctx.New(p.ContextMaxTurns, p.ContextTTL, p.ContinuityWindow)
	t.Cleanup(cc.Close)
	return NewEngine(p, snap, cc, nil, strategy), cc
}

func TestRuleModeTechQuestionNotInjected(t *testing.T) {
	e, cc := newRuleEngine(t, &fakeSnapshotter{snap: workingSnapshot()})
	now := time.Now()

	d, err := e.Decide(context.Background(), "u1", "Python怎么安装", now)
	require.NoError(t, err)
	require.False(t, d.Injected)
	require.Empty(t, d.Fragment)
	require.Equal(t, IntentTechQuestion, d.Intent)

	// The turn is still recorded for continuity tracking.
	turns := cc.RecentTurns("u1", now)
	require.Len(t, turns, 1)
	require.False(t, turns[0].Injected)
}

func TestRuleModeCurrentQueryInjected(t *testing.T) {
	e, _ := newRuleEngine(t, &fakeSnapshotter{snap: workingSnapshot()})

	d, err := e.Decide(context.Background(), "u1", "你现在在干嘛", time.Now())
	require.NoError(t, err)
	require.True(t, d.Injected)
	require.Equal(t, IntentQueryCurrent, d.Intent)
	require.Contains(t, d.Fragment, "写代码")
	require.Contains(t, d.Fragment, "专心开发")
	require.Equal(t, "写代码", d.Activity)
}

func TestRuleModeFutureQueryListsUpcoming(t *testing.T) {
	e, _ := newRuleEngine(t, &fakeSnapshotter{snap: workingSnapshot()})

	d, err := e.Decide(context.Background(), "u1", "接下来有什么计划", time.Now())
	require.NoError(t, err)
	require.True(t, d.Injected)
	require.Equal(t, IntentQueryFuture, d.Intent)
	require.Contains(t, d.Fragment, "吃午饭")
}

func TestRuleModeContinuityOverridesDedupe(t *testing.T) {
	e, _ := newRuleEngine(t, &fakeSnapshotter{snap: workingSnapshot()})
	base := time.Now()

	d, err := e.Decide(context.Background(), "u1", "你现在在干嘛", base)
	require.NoError(t, err)
	require.True(t, d.Injected)

	// The repeat would be deduplicated, but the topic is still ongoing.
	d, err = e.Decide(context.Background(), "u1", "你现在在干嘛", base.Add(10*time.Second))
	require.NoError(t, err)
	require.True(t, d.Injected)
	require.NotEmpty(t, d.Reason)
}

func TestNoScheduleSkips(t *testing.T) {
	e, _ := newRuleEngine(t, &fakeSnapshotter{err: store.ErrScheduleNotFound})

	d, err := e.Decide(context.Background(), "u1", "在干嘛", time.Now())
	require.NoError(t, err)
	require.False(t, d.Injected)
	require.Contains(t, d.Reason, "no schedule")
}

func TestIdleGapSkips(t *testing.T) {
	snap := workingSnapshot()
	snap.Current = nil
	e, _ := newRuleEngine(t, &fakeSnapshotter{snap: snap})

	d, err := e.Decide(context.Background(), "u1", "在干嘛", time.Now())
	require.NoError(t, err)
	require.False(t, d.Injected)
	require.Contains(t, d.Reason, "no current activity")
}

func TestDecideBackfillsMissingSchedule(t *testing.T) {
	p := profile.Default()
	p.InjectMode = profile.InjectModeRule
	strategy, err := StrategyForMode(p)
	require.NoError(t, err)

	snapshotter := &fakeSnapshotter{err: store.ErrScheduleNotFound}
	backfill := &fakeBackfill{snapshotter: snapshotter, filled: workingSnapshot()}
	cc := convctx.New(3, 10*time.Minute, time.Minute)
	defer cc.Close()
	e := NewEngine(p, snapshotter, cc, backfill, strategy)

	d, err := e.Decide(context.Background(), "u1", "你现在在干嘛", time.Now())
	require.NoError(t, err)
	require.True(t, d.Injected)
	require.Equal(t, 1, backfill.calls)
}

func TestSmartModeInjectsOptionalContext(t *testing.T) {
	p := profile.Default()
	p.InjectMode = profile.InjectModeSmart
	strategy, err := StrategyForMode(p)
	require.NoError(t, err)

	cc := convctx.New(3, 10*time.Minute, time.Minute)
	defer cc.Close()
	e := NewEngine(p, &fakeSnapshotter{snap: workingSnapshot()}, cc, nil, strategy)

	d, err := e.Decide(context.Background(), "u1", "你在干嘛呀", time.Now())
	require.NoError(t, err)
	require.True(t, d.Injected)
	require.Contains(t, d.Fragment, "可选上下文")
	require.Contains(t, d.Fragment, "写代码")

	// Tech messages skip even in smart mode.
	d, err = e.Decide(context.Background(), "u1", "这个配置怎么改", time.Now())
	require.NoError(t, err)
	require.False(t, d.Injected)
}

func TestTraditionalModeAlwaysInjects(t *testing.T) {
	p := profile.Default()
	p.InjectMode = profile.InjectModeTraditional
	strategy, err := StrategyForMode(p)
	require.NoError(t, err)

	cc := convctx.New(3, 10*time.Minute, time.Minute)
	defer cc.Close()
	e := NewEngine(p, &fakeSnapshotter{snap: workingSnapshot()}, cc, nil, strategy)

	// Even a tech question injects in the legacy mode.
	d, err := e.Decide(context.Background(), "u1", "Python怎么安装", time.Now())
	require.NoError(t, err)
	require.True(t, d.Injected)
	require.Contains(t, d.Fragment, "这会儿正写代码")
	require.Contains(t, d.Fragment, "等下12:00要吃午饭")
}
