package inject

import "strings"

// SmartStrategy hands the schedule to the downstream LLM as optional
// context with usage guidance, letting the model itself decide whether to
// mention it. Only clearly technical or command messages skip the fragment
// entirely.
type SmartStrategy struct {
	maxFuture int
}

// NewSmartStrategy creates the strategy. maxFuture caps how many upcoming
// activities the fragment lists; zero or negative means show three.
func NewSmartStrategy(maxFuture int) *SmartStrategy {
	if maxFuture <= 0 {
		maxFuture = 3
	}
	return &SmartStrategy{maxFuture: maxFuture}
}

func (s *SmartStrategy) Name() string { return "smart" }

var smartTechKeywords = []string{"怎么", "如何", "报错", "错误", "bug", "代码", "配置"}

func (s *SmartStrategy) Decide(req *Request) *Decision {
	intent, confidence := Classify(req.Message)
	d := &Decision{Intent: intent, Confidence: confidence, Activity: req.Activity}

	msg := strings.ToLower(req.Message)
	if strings.HasPrefix(req.Message, "/") || strings.HasPrefix(req.Message, "sudo") ||
		containsAny(msg, smartTechKeywords...) {
		d.Reason = "technical or command message"
		return d
	}

	d.Injected = true
	d.Fragment = s.buildFragment(req, msg)
	d.Reason = req.ContextReason
	return d
}

// buildFragment renders the schedule as an optional-context block followed
// by guidance matched to the message type.
func (s *SmartStrategy) buildFragment(req *Request, msg string) string {
	var b strings.Builder

	b.WriteString("【可选上下文 - 当前日程】\n")
	b.WriteString("现在：" + req.Activity)
	if req.Description != "" {
		b.WriteString("（" + req.Description + "）")
	}
	b.WriteString("\n")

	future := req.Future
	if len(future) > s.maxFuture {
		future = future[:s.maxFuture]
	}
	if len(future) > 0 {
		b.WriteString("接下来的安排:\n")
		for _, f := range future {
			b.WriteString("  " + f.Time + " - " + f.Title + "\n")
		}
	}
	b.WriteString("\n")

	switch {
	case containsAny(msg, "在干嘛", "做什么", "忙吗", "在做", "正在", "日程", "计划", "安排", "行程", "现在", "当前", "这会儿"):
		b.WriteString("用户直接询问当前状态，请如实告知当前活动及状态。\n")
	case containsAny(msg, "接下来", "等下", "稍后", "之后", "待会", "明天", "今晚", "晚上", "下午", "上午"):
		b.WriteString("用户询问未来计划，请自然地介绍后续安排。\n")
	case containsAny(msg, "早上好", "晚上好", "早安", "晚安", "你好", "hi", "hello", "嗨"):
		b.WriteString("用户在问候，可以自然地顺便提一下今天的计划，不要强行提及。\n")
	default:
		b.WriteString("以上是当前的日程信息，仅供参考。\n")
		b.WriteString("如果与用户问题相关，可以自然提及；如果不相关，请完全忽略此信息。\n")
		b.WriteString("不要为了提及日程而刻意转移话题。\n")
	}

	b.WriteString("\n---\n")
	return b.String()
}
