// Package inject decides whether a user's message warrants weaving the
// persona's current schedule into the reply prompt, and renders the
// fragment to inject.
package inject

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hrygo/planweaver/internal/profile"
	"github.com/hrygo/planweaver/plugin/planner/convctx"
	"github.com/hrygo/planweaver/plugin/planner/schedule"
	"github.com/hrygo/planweaver/store"
)

// Snapshotter resolves the plan position for an instant.
type Snapshotter interface {
	SnapshotAt(ctx context.Context, at time.Time) (*schedule.Snapshot, error)
}

// Generator backfills a missing schedule before a decision.
type Generator interface {
	Generate(ctx context.Context, date string, force bool) (*store.DailySchedule, error)
}

// Engine runs one injection decision per user turn: look up where the
// persona is in today's plan, consult the conversation context, delegate to
// the configured strategy and record the turn back into the context.
type Engine struct {
	profile   *profile.Profile
	reader    Snapshotter
	context   *convctx.Cache
	generator Generator // optional

	strategy Strategy
}

// NewEngine wires an engine with the strategy selected by the profile's
// inject mode. generator may be nil to disable decision-time backfill.
func NewEngine(p *profile.Profile, reader Snapshotter, ctxCache *convctx.Cache, generator Generator, strategy Strategy) *Engine {
	return &Engine{
		profile:   p,
		reader:    reader,
		context:   ctxCache,
		generator: generator,
		strategy:  strategy,
	}
}

// StrategyForMode builds the strategy configured by the profile.
func StrategyForMode(p *profile.Profile) (Strategy, error) {
	switch p.InjectMode {
	case profile.InjectModeRule:
		optimizer, err := NewOptimizer(p.CacheTTL, p.CasualInjectProb, p.InjectPolicy, nil)
		if err != nil {
			return nil, err
		}
		return NewRuleStrategy(optimizer, NewTemplateEngine(nil)), nil
	case profile.InjectModeTraditional:
		return NewTraditionalStrategy(NewTemplateEngine(nil)), nil
	default:
		return NewSmartStrategy(p.MaxFutureInDecide), nil
	}
}

// Mode names the active strategy.
func (e *Engine) Mode() string {
	return e.strategy.Name()
}

// InjectStats returns injection history counters when the active strategy
// tracks them; only the rule strategy does.
func (e *Engine) InjectStats() (OptimizerStats, bool) {
	if sp, ok := e.strategy.(interface{ InjectStats() OptimizerStats }); ok {
		return sp.InjectStats(), true
	}
	return OptimizerStats{}, false
}

// Decide makes the injection decision for one user message at the given
// instant and records the turn. A day without a schedule (after optional
// backfill) or an idle gap in the plan never injects.
func (e *Engine) Decide(ctx context.Context, userID, message string, now time.Time) (*Decision, error) {
	snap, err := e.snapshot(ctx, now)
	if err != nil {
		if errors.Is(err, store.ErrScheduleNotFound) {
			return e.skip(userID, message, "", now, "no schedule for today"), nil
		}
		return nil, err
	}

	if snap.Current == nil {
		return e.skip(userID, message, "", now, "no current activity"), nil
	}

	activity := snap.Current.Title
	forced, forcedReason := e.context.ShouldContinueInject(userID, activity, now)

	future := make([]FutureItem, 0, len(snap.Upcoming))
	for i := range snap.Upcoming {
		future = append(future, FutureItem{
			Time:  snap.Upcoming[i].StartClock(),
			Title: snap.Upcoming[i].Title,
		})
	}

	d := e.strategy.Decide(&Request{
		UserID:        userID,
		Message:       message,
		Activity:      activity,
		Description:   snap.Current.Description,
		Future:        future,
		ContextForced: forced,
		ContextReason: forcedReason,
		Now:           now,
	})

	e.context.AddTurn(userID, convctx.Turn{
		Message:  message,
		Injected: d.Injected,
		Activity: activity,
		Intent:   string(d.Intent),
		At:       now,
	})

	slog.Debug("injection decision",
		"user", userID, "mode", e.strategy.Name(), "intent", d.Intent,
		"injected", d.Injected, "reason", d.Reason)
	return d, nil
}

func (e *Engine) snapshot(ctx context.Context, now time.Time) (*schedule.Snapshot, error) {
	snap, err := e.reader.SnapshotAt(ctx, now)
	if err == nil || !errors.Is(err, store.ErrScheduleNotFound) || e.generator == nil {
		return snap, err
	}

	date := now.In(e.profile.Location()).Format(store.DateLayout)
	if _, genErr := e.generator.Generate(ctx, date, false); genErr != nil {
		slog.Warn("decision-time schedule backfill failed", "date", date, "error", genErr)
		return nil, err
	}
	return e.reader.SnapshotAt(ctx, now)
}

func (e *Engine) skip(userID, message, activity string, now time.Time, reason string) *Decision {
	intent, confidence := Classify(message)
	e.context.AddTurn(userID, convctx.Turn{
		Message:  message,
		Injected: false,
		Activity: activity,
		Intent:   string(intent),
		At:       now,
	})
	return &Decision{Intent: intent, Confidence: confidence, Reason: reason}
}
