package inject

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
)

// minConfidence is the classifier confidence below which injection is
// skipped regardless of intent.
const minConfidence = 0.4

// injectRecord is one user's injection history.
type injectRecord struct {
	lastTime     time.Time
	lastActivity string
	lastIntent   Intent
	lastContent  string
	count        int
}

// UserInjectStats is the per-user view returned by the stats surface.
type UserInjectStats struct {
	LastActivity  string        `json:"last_activity"`
	Count         int           `json:"count"`
	TimeSinceLast time.Duration `json:"time_since_last"`
}

// OptimizerStats aggregates injection history across users.
type OptimizerStats struct {
	ActiveUsers  int `json:"active_users"`
	TotalInjects int `json:"total_injects"`
}

// Optimizer decides whether a rule-mode injection should actually happen,
// protecting users from repeated or irrelevant schedule mentions. An
// optional CEL policy expression gets the final veto.
type Optimizer struct {
	ttl        time.Duration
	casualProb float64
	rng        *rand.Rand

	program cel.Program

	mu      sync.Mutex
	history map[string]*injectRecord
}

// NewOptimizer builds an optimizer. policy is a CEL expression over the
// variables intent, confidence, activity and user_id that must evaluate to
// a bool; an empty policy always allows. A nil rng uses the global source.
func NewOptimizer(ttl time.Duration, casualProb float64, policy string, rng *rand.Rand) (*Optimizer, error) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	o := &Optimizer{
		ttl:        ttl,
		casualProb: casualProb,
		rng:        rng,
		history:    make(map[string]*injectRecord),
	}

	if policy != "" {
		env, err := cel.NewEnv(
			cel.Variable("intent", cel.StringType),
			cel.Variable("confidence", cel.DoubleType),
			cel.Variable("activity", cel.StringType),
			cel.Variable("user_id", cel.StringType),
		)
		if err != nil {
			return nil, errors.Wrap(err, "create policy environment")
		}
		ast, issues := env.Compile(policy)
		if issues != nil && issues.Err() != nil {
			return nil, errors.Wrap(issues.Err(), "compile inject policy")
		}
		if ast.OutputType() != cel.BoolType {
			return nil, errors.Errorf("inject policy must evaluate to bool, got %v", ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, errors.Wrap(err, "build inject policy program")
		}
		o.program = prg
	}

	return o, nil
}

// ShouldInject applies the rule-mode gate. The returned reason is empty when
// injection is allowed.
func (o *Optimizer) ShouldInject(userID string, intent Intent, activity string, confidence float64, now time.Time) (bool, string) {
	if intent == IntentTechQuestion || intent == IntentCommand {
		return false, string(intent) + " message, skipping injection"
	}

	if activity == "" && intent != IntentQueryCurrent && intent != IntentQueryFuture {
		return false, "no current activity and not a schedule query"
	}

	// Repeat suppression: the same activity and intent within the TTL is
	// noise. Future queries are exempt so "下午呢" then "晚上呢" both answer.
	if intent != IntentQueryFuture {
		o.mu.Lock()
		rec, ok := o.history[userID]
		o.mu.Unlock()
		if ok {
			elapsed := now.Sub(rec.lastTime)
			if elapsed < o.ttl && rec.lastActivity == activity && rec.lastIntent == intent {
				return false, fmt.Sprintf("duplicate injection %ds ago for the same activity and intent", int(elapsed.Seconds()))
			}
		}
	}

	if intent == IntentCasualChat && o.randFloat() > o.casualProb {
		return false, "casual chat, random skip"
	}

	if confidence < minConfidence {
		return false, fmt.Sprintf("intent confidence too low (%.2f)", confidence)
	}

	if o.program != nil {
		out, _, err := o.program.Eval(map[string]any{
			"intent":     string(intent),
			"confidence": confidence,
			"activity":   activity,
			"user_id":    userID,
		})
		if err != nil {
			return false, "inject policy evaluation failed: " + err.Error()
		}
		if allowed, ok := out.Value().(bool); !ok || !allowed {
			return false, "denied by inject policy"
		}
	}

	return true, ""
}

// RecordInjection stores the injection so repeat suppression can see it.
func (o *Optimizer) RecordInjection(userID string, intent Intent, activity, content string, now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	rec, ok := o.history[userID]
	if !ok {
		rec = &injectRecord{}
		o.history[userID] = rec
	}
	rec.lastTime = now
	rec.lastActivity = activity
	rec.lastIntent = intent
	rec.lastContent = content
	rec.count++
}

// CleanupExpired drops users idle for twice the TTL.
func (o *Optimizer) CleanupExpired(now time.Time) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	removed := 0
	for userID, rec := range o.history {
		if now.Sub(rec.lastTime) > 2*o.ttl {
			delete(o.history, userID)
			removed++
		}
	}
	return removed
}

// UserStats returns a user's injection history, or nil if there is none.
func (o *Optimizer) UserStats(userID string, now time.Time) *UserInjectStats {
	o.mu.Lock()
	defer o.mu.Unlock()

	rec, ok := o.history[userID]
	if !ok {
		return nil
	}
	return &UserInjectStats{
		LastActivity:  rec.lastActivity,
		Count:         rec.count,
		TimeSinceLast: now.Sub(rec.lastTime),
	}
}

// Stats aggregates the history across users.
func (o *Optimizer) Stats() OptimizerStats {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := OptimizerStats{ActiveUsers: len(o.history)}
	for _, rec := range o.history {
		s.TotalInjects += rec.count
	}
	return s
}

// ResetUser clears one user's injection history.
func (o *Optimizer) ResetUser(userID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.history, userID)
}

func (o *Optimizer) randFloat() float64 {
	if o.rng != nil {
		return o.rng.Float64()
	}
	return rand.Float64()
}
