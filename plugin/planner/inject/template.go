package inject

import (
	"math/rand"
	"strings"
)

// FutureItem is one upcoming activity shown in an injected fragment.
type FutureItem struct {
	Time  string
	Title string
}

// Templates per intent. An empty variant means "do not inject this time";
// casual chat carries two of them so light topics stay light.
var fragmentTemplates = map[Intent][]string{
	IntentQueryCurrent: {
		"【当前状态】{activity_full}。回答问题时自然提到当前活动即可。",
		"【当前状态】{activity_full}。回复时可以顺便说说现在在做什么。",
		"【当前状态】{activity_full}。自然融入到回复中。",
		"【当前状态】{activity_full}。回答时顺带提一下。",
	},
	IntentQueryFuture: {
		"【当前状态】{activity_full}。【接下来安排】{future_activities}。回复时自然提到后续计划。",
		"【后续计划】{future_activities}。可以在回答中提及接下来的安排。",
		"【今日安排】现在：{activity_full}，之后：{future_activities}。顺便说说计划即可。",
	},
	IntentCasualChat: {
		"【提示】{activity_full}。可随口提一下。",
		"【当前】{activity_full}。轻松回复。",
		"",
		"",
	},
	IntentTechQuestion: {""},
	IntentCommand:      {""},
}

// TemplateEngine renders injected prompt fragments, picking a random variant
// per call so repeated injections do not read identically.
type TemplateEngine struct {
	rng *rand.Rand
}

// NewTemplateEngine creates an engine. A nil source uses the shared
// global generator.
func NewTemplateEngine(rng *rand.Rand) *TemplateEngine {
	return &TemplateEngine{rng: rng}
}

func (e *TemplateEngine) pick(variants []string) string {
	if len(variants) == 0 {
		return ""
	}
	if e.rng != nil {
		return variants[e.rng.Intn(len(variants))]
	}
	return variants[rand.Intn(len(variants))]
}

// Build renders a fragment for the intent, or "" when nothing should be
// injected. Future queries work without a current activity; everything else
// needs one.
func (e *TemplateEngine) Build(intent Intent, activity, description string, future []FutureItem) string {
	variants, ok := fragmentTemplates[intent]
	if !ok {
		return ""
	}

	tmpl := e.pick(variants)
	if tmpl == "" {
		return ""
	}
	if activity == "" && intent != IntentQueryFuture {
		return ""
	}

	activityFull := activity
	if activityFull == "" {
		activityFull = "休息"
	}
	if description != "" {
		activityFull += "（" + description + "）"
	}

	r := strings.NewReplacer(
		"{activity_full}", activityFull,
		"{future_activities}", formatFuture(future),
	)
	return r.Replace(tmpl)
}

// BuildTraditional renders the fixed legacy fragment, unconditionally.
func (e *TemplateEngine) BuildTraditional(activity, description string, future []FutureItem) string {
	var b strings.Builder
	b.WriteString("【当前状态】\n这会儿正")
	b.WriteString(activity)
	if description != "" {
		b.WriteString("（" + description + "）")
	}
	b.WriteString("\n回复时可以自然提到当前在做什么，不要刻意强调。")
	if len(future) > 0 {
		b.WriteString("\n等下" + future[0].Time + "要" + future[0].Title + "。")
	}
	b.WriteString("\n")
	return b.String()
}

func formatFuture(future []FutureItem) string {
	if len(future) == 0 {
		return "暂无后续安排"
	}
	lines := make([]string, 0, len(future))
	for _, f := range future {
		lines = append(lines, f.Time+" "+f.Title)
	}
	return strings.Join(lines, "\n")
}
