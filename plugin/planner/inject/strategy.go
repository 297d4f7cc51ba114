package inject

import (
	"strings"
	"time"
)

// Request is everything a strategy needs to decide one turn.
type Request struct {
	UserID      string
	Message     string
	Activity    string // current activity title, may be empty
	Description string
	Future      []FutureItem
	// ContextForced is set when the conversation context demands an
	// injection the per-turn rules would skip.
	ContextForced bool
	ContextReason string
	Now           time.Time
}

// Decision is the outcome of one injection decision.
type Decision struct {
	Injected   bool    `json:"injected"`
	Fragment   string  `json:"fragment,omitempty"`
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
	Activity   string  `json:"activity,omitempty"`
}

// Strategy decides whether and what to inject for a turn.
type Strategy interface {
	Name() string
	Decide(req *Request) *Decision
}

// RuleStrategy classifies the message, gates it through the optimizer and
// renders a per-intent template.
type RuleStrategy struct {
	optimizer *Optimizer
	templates *TemplateEngine
}

func NewRuleStrategy(optimizer *Optimizer, templates *TemplateEngine) *RuleStrategy {
	return &RuleStrategy{optimizer: optimizer, templates: templates}
}

func (s *RuleStrategy) Name() string { return "rule" }

// InjectStats exposes the optimizer's injection history counters.
func (s *RuleStrategy) InjectStats() OptimizerStats { return s.optimizer.Stats() }

func (s *RuleStrategy) Decide(req *Request) *Decision {
	intent, confidence := Classify(req.Message)
	d := &Decision{Intent: intent, Confidence: confidence, Activity: req.Activity}

	allowed := req.ContextForced
	reason := req.ContextReason
	if !allowed {
		allowed, reason = s.optimizer.ShouldInject(req.UserID, intent, req.Activity, confidence, req.Now)
	}
	if !allowed {
		d.Reason = reason
		return d
	}

	future := req.Future
	if tr := ExtractTimeRange(req.Message); tr != nil && intent == IntentQueryFuture {
		future = filterByTimeRange(future, tr)
	}

	fragment := s.templates.Build(intent, req.Activity, req.Description, future)
	if fragment == "" {
		d.Reason = "no fragment for this intent"
		return d
	}

	d.Injected = true
	d.Fragment = fragment
	d.Reason = reason
	s.optimizer.RecordInjection(req.UserID, intent, req.Activity, fragment, req.Now)
	return d
}

// TraditionalStrategy always injects the fixed legacy fragment.
type TraditionalStrategy struct {
	templates *TemplateEngine
}

func NewTraditionalStrategy(templates *TemplateEngine) *TraditionalStrategy {
	return &TraditionalStrategy{templates: templates}
}

func (s *TraditionalStrategy) Name() string { return "traditional" }

func (s *TraditionalStrategy) Decide(req *Request) *Decision {
	intent, confidence := Classify(req.Message)
	return &Decision{
		Injected:   true,
		Fragment:   s.templates.BuildTraditional(req.Activity, req.Description, req.Future),
		Intent:     intent,
		Confidence: confidence,
		Activity:   req.Activity,
	}
}

// filterByTimeRange keeps future items whose start hour falls inside the
// asked time-of-day window.
func filterByTimeRange(items []FutureItem, tr *TimeRange) []FutureItem {
	out := make([]FutureItem, 0, len(items))
	for _, it := range items {
		hour := clockHour(it.Time)
		if hour >= tr.StartHour && hour < tr.EndHour {
			out = append(out, it)
		}
	}
	return out
}

func clockHour(clock string) int {
	i := strings.IndexByte(clock, ':')
	if i <= 0 {
		return -1
	}
	hour := 0
	for _, r := range clock[:i] {
		if r < '0' || r > '9' {
			return -1
		}
		hour = hour*10 + int(r-'0')
	}
	// Cross-midnight starts render past 24.
	return hour % 24
}
