package inject

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentQueryCurrent Intent = "query_current"
	IntentQueryFuture  Intent = "query_future"
	IntentCasualChat   Intent = "casual_chat"
	IntentTechQuestion Intent = "tech_question"
	IntentCommand      Intent = "command"
	IntentUnknown      Intent = "unknown"
)

// TimeRange is a named slice of the day extracted from a message, used to
// filter the upcoming-activity list for questions like "下午有什么安排".
type TimeRange struct {
	Name      string
	StartHour int
	EndHour   int
}

var currentKeywords = []string{
	"现在", "当前", "正在", "在做", "在干", "在忙",
	"这会儿", "此刻", "目前", "眼下",
	"做什么", "干什么", "忙什么",
	"在吗", "有空吗", "忙吗", "空闲吗",
	"刚", "刚才", "刚刚",
	"在", "在哪", "去哪",
}

var activityVerbs = []string{
	"吃", "睡", "玩", "聊", "看", "学", "写", "做",
	"休息", "工作", "运动", "看剧", "追剧",
	"聊天", "打游戏", "学习", "写代码",
}

var futureKeywords = []string{
	"接下来", "等下", "稍后", "之后", "待会", "一会儿",
	"明天", "今晚", "晚上", "下午",
	"打算", "计划", "安排", "准备",
	"要做", "会做", "打算做",
	"然后", "后面", "接着",
}

var techKeywords = []string{
	"怎么", "如何", "为什么", "什么是",
	"配置", "安装", "设置", "调试",
	"错误", "报错", "异常", "bug",
	"代码", "程序", "脚本", "函数",
	"数据库", "服务器", "api", "接口",
	"版本", "更新", "升级", "兼容",
}

var casualKeywords = []string{
	"你好", "hi", "hello", "嗨",
	"早", "晚安", "再见", "拜拜",
	"哈哈", "呵呵", "嘿嘿",
	"好的", "ok", "嗯", "嗯嗯",
	"谢谢", "多谢", "感谢",
}

var commandRegex = regexp.MustCompile(`^(/\w+|sudo\s+|git\s+|npm\s+|python\s+|cd\s+|ls\s+)`)

// timeRanges is ordered so overlapping words resolve deterministically.
var timeRanges = []TimeRange{
	{"凌晨", 0, 6},
	{"早上", 6, 9},
	{"上午", 9, 12},
	{"中午", 11, 14},
	{"下午", 14, 18},
	{"傍晚", 17, 19},
	{"晚上", 18, 23},
	{"深夜", 22, 24},
}

// Classify buckets a message by keyword matching with length-weighted
// scoring. Priority runs command, tech, current, future, casual; short
// question-mark messages default to a current-state query.
func Classify(message string) (Intent, float64) {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return IntentUnknown, 0
	}

	if commandRegex.MatchString(msg) {
		return IntentCommand, 1.0
	}

	if score := keywordScore(msg, techKeywords); score > 0.5 {
		return IntentTechQuestion, score
	}

	currentScore := keywordScore(msg, currentKeywords)
	if containsAny(msg, "正在", "在做", "在干", "现在", "当前") {
		currentScore = min1(currentScore * 1.5)
	}
	// Rhetorical "你不是...吗" with an activity verb reads as a state query.
	if (strings.Contains(msg, "你不是") || strings.Contains(msg, "不是")) &&
		containsAny(msg, "吗", "?", "？") && containsAny(msg, activityVerbs...) {
		currentScore = maxf(currentScore, 0.85)
	}
	if containsAny(msg, activityVerbs...) && containsAny(msg, "刚", "刚才", "刚刚", "在") {
		currentScore = maxf(currentScore, 0.80)
	}
	if currentScore > 0.4 {
		return IntentQueryCurrent, currentScore
	}

	futureScore := keywordScore(msg, futureKeywords)
	if containsAny(msg, "接下来", "等下", "计划", "安排", "打算") {
		futureScore = min1(futureScore * 1.5)
	}
	if futureScore > 0.4 {
		return IntentQueryFuture, futureScore
	}

	if score := keywordScore(msg, casualKeywords); score > 0.3 {
		return IntentCasualChat, score
	}

	if utf8.RuneCountInString(msg) < 10 && containsAny(msg, "?", "？") {
		return IntentQueryCurrent, 0.6
	}

	return IntentCasualChat, 0.40
}

// ExtractTimeRange finds a named time-of-day word in the message, or nil.
func ExtractTimeRange(message string) *TimeRange {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return nil
	}
	for i := range timeRanges {
		if strings.Contains(msg, timeRanges[i].Name) {
			tr := timeRanges[i]
			return &tr
		}
	}
	return nil
}

// keywordScore combines match count with a length bonus so long keywords
// outweigh incidental single-character hits.
func keywordScore(msg string, keywords []string) float64 {
	matched := 0
	totalWeight := 0.0
	for _, kw := range keywords {
		if strings.Contains(msg, kw) {
			matched++
			totalWeight += float64(utf8.RuneCountInString(kw)) / 5.0
		}
	}
	if matched == 0 {
		return 0
	}
	base := min1(float64(matched) / 3.0)
	bonus := totalWeight / 5.0
	if bonus > 0.5 {
		bonus = 0.5
	}
	return min1(base + bonus)
}

func containsAny(msg string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
