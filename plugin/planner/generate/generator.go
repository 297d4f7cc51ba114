// Package generate drafts daily schedules through a multi-round LLM loop.
//
// Each round asks the provider for a full day plan, parses and validates the
// draft, and scores it. A draft at or above the quality threshold is accepted
// immediately; otherwise the validator findings are fed back into the next
// round's prompt. When the round budget runs out the best draft seen so far
// is persisted anyway, with its real score recorded, so a day is never left
// without a plan because the model kept missing one rule.
package generate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/hrygo/planweaver/internal/profile"
	"github.com/hrygo/planweaver/plugin/planner/schedule"
	"github.com/hrygo/planweaver/store"
)

var (
	// ErrEmptyResponse indicates the provider returned no choices.
	ErrEmptyResponse = errors.New("empty response from provider")
	// ErrNoUsableDraft indicates every round failed before producing a
	// parseable schedule.
	ErrNoUsableDraft = errors.New("no usable schedule draft produced")
)

// ScheduleStore is the subset of the store the generator writes through.
type ScheduleStore interface {
	GetScheduleByDate(ctx context.Context, date string) (*store.DailySchedule, error)
	UpsertSchedule(ctx context.Context, upsert *store.DailySchedule) (*store.DailySchedule, error)
}

// Invalidator removes a date's entry from the read cache after a write.
type Invalidator interface {
	InvalidateDate(ctx context.Context, date string)
}

// Generator runs the multi-round schedule generation pipeline.
type Generator struct {
	profile  *profile.Profile
	store    ScheduleStore
	cache    Invalidator
	provider Provider
	weights  ScoreWeights

	// group collapses concurrent generation requests for the same date
	// into one provider round-trip.
	group   singleflight.Group
	limiter *rate.Limiter
}

// NewGenerator wires a generator. A nil limiter disables rate limiting.
func NewGenerator(p *profile.Profile, s ScheduleStore, cache Invalidator, provider Provider, limiter *rate.Limiter) *Generator {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Generator{
		profile:  p,
		store:    s,
		cache:    cache,
		provider: provider,
		weights:  DefaultScoreWeights(),
		limiter:  limiter,
	}
}

// Generate returns the schedule for a date, producing one if needed.
// Without force an existing schedule is returned as-is; with force a fresh
// plan replaces it. Concurrent calls for the same date share one generation.
func (g *Generator) Generate(ctx context.Context, date string, force bool) (*store.DailySchedule, error) {
	if !force {
		existing, err := g.store.GetScheduleByDate(ctx, date)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, store.ErrScheduleNotFound) {
			return nil, err
		}
	}

	v, err, _ := g.group.Do(date, func() (any, error) {
		// Re-check inside the flight: a racing caller may have
		// finished the write while this one waited on the group.
		if !force {
			if existing, err := g.store.GetScheduleByDate(ctx, date); err == nil {
				return existing, nil
			}
		}
		return g.generate(ctx, date)
	})
	if err != nil {
		return nil, err
	}
	return v.(*store.DailySchedule), nil
}

// GenerateToday is Generate for the current date in the configured timezone.
func (g *Generator) GenerateToday(ctx context.Context, force bool) (*store.DailySchedule, error) {
	return g.Generate(ctx, time.Now().In(g.profile.Location()).Format(store.DateLayout), force)
}

type draft struct {
	activities []store.Activity
	score      float64
	round      int
}

func (g *Generator) generate(ctx context.Context, date string) (*store.DailySchedule, error) {
	day, err := time.ParseInLocation(store.DateLayout, date, g.profile.Location())
	if err != nil {
		return nil, err
	}

	systemPrompt := buildSystemPrompt(g.profile)

	maxRounds := g.profile.MaxRounds
	if !g.profile.UseMultiRound {
		maxRounds = 1
	}

	var best *draft
	var feedback []string
	for round := 1; round <= maxRounds; round++ {
		d, findings, err := g.runRound(ctx, systemPrompt, day, round, feedback)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Warn("schedule generation round failed", "date", date, "round", round, "error", err)
			continue
		}

		slog.Info("schedule draft scored",
			"date", date, "round", round, "score", d.score, "findings", len(findings))

		if best == nil || d.score > best.score {
			best = d
		}
		if d.score >= g.profile.QualityThreshold {
			break
		}
		feedback = findings
	}

	if best == nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrNoUsableDraft
	}

	return g.persist(ctx, date, best)
}

// runRound executes one draft attempt under its own slice of the overall
// generation timeout.
func (g *Generator) runRound(ctx context.Context, systemPrompt string, day time.Time, round int, feedback []string) (*draft, []string, error) {
	roundCtx, cancel := context.WithTimeout(ctx, g.roundTimeout())
	defer cancel()

	if err := g.limiter.Wait(roundCtx); err != nil {
		return nil, nil, err
	}

	userPrompt := buildUserPrompt(g.profile, day, round, feedback)
	output, err := g.provider.Complete(roundCtx, systemPrompt, userPrompt)
	if err != nil {
		return nil, nil, err
	}

	activities, err := parseActivities(output)
	if err != nil {
		return nil, nil, err
	}

	findings := validateActivities(g.profile, activities)
	score := scoreActivities(g.profile, g.weights, activities)
	return &draft{activities: activities, score: score, round: round}, findings, nil
}

func (g *Generator) roundTimeout() time.Duration {
	if g.profile.MaxRounds <= 0 {
		return g.profile.GenerationTimeout
	}
	return g.profile.GenerationTimeout / time.Duration(g.profile.MaxRounds)
}

func (g *Generator) persist(ctx context.Context, date string, d *draft) (*store.DailySchedule, error) {
	saved, err := g.store.UpsertSchedule(ctx, &store.DailySchedule{
		Date:         date,
		Activities:   d.activities,
		RoundsUsed:   d.round,
		QualityScore: d.score,
		Model:        g.provider.Model(),
		Provider:     g.provider.Name(),
	})
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		g.cache.InvalidateDate(ctx, date)
	}
	slog.Info("schedule persisted",
		"date", date, "activities", len(saved.Activities), "rounds", d.round, "score", d.score)
	return saved, nil
}

var _ Invalidator = (*schedule.Reader)(nil)
