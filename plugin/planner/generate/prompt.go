package generate

import (
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/planweaver/internal/profile"
)

var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "星期日",
	time.Monday:    "星期一",
	time.Tuesday:   "星期二",
	time.Wednesday: "星期三",
	time.Thursday:  "星期四",
	time.Friday:    "星期五",
	time.Saturday:  "星期六",
}

// buildSystemPrompt produces the persona framing shared by every round.
func buildSystemPrompt(p *profile.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "你是%s，一个有自己生活节奏的虚拟角色。", p.PersonaName)
	b.WriteString("你需要为自己规划一份真实、自然的日程安排。")
	if p.PersonaPrompt != "" {
		b.WriteString("\n\n")
		b.WriteString(p.PersonaPrompt)
	}
	b.WriteString("\n\n输出要求：只输出一个 JSON 数组，不要输出任何解释文字。")
	b.WriteString("数组中每个元素包含字段 start（\"HH:MM\"）、end（\"HH:MM\"）、title、description、type。")
	b.WriteString("type 必须是以下之一：学习、工作、休息、娱乐、运动、饮食、社交、创作。")
	return b.String()
}

// buildUserPrompt produces the per-round request. Later rounds append the
// validator findings from the previous attempt so the model can repair them.
func buildUserPrompt(p *profile.Profile, date time.Time, round int, feedback []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "请为 %s（%s）规划当天的完整日程。\n", date.Format("2006-01-02"), weekdayNames[date.Weekday()])
	fmt.Fprintf(&b, "要求：\n")
	fmt.Fprintf(&b, "- 共 %d 到 %d 个活动，按时间顺序排列，时间段不能重叠\n", p.MinActivities, p.MaxActivities)
	fmt.Fprintf(&b, "- 每个活动的 description 为 %d 到 %d 个字，描述要具体、有画面感\n", p.MinDescriptionLen, p.MaxDescriptionLen)
	b.WriteString("- 覆盖起床到入睡的主要时间，包含饮食和休息\n")
	b.WriteString("- 活动类型要多样，不要整天只做一类事\n")

	if round > 1 && len(feedback) > 0 {
		fmt.Fprintf(&b, "\n这是第 %d 次尝试。上一版日程存在以下问题，请修正后重新输出完整日程：\n", round)
		for _, f := range feedback {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	return b.String()
}
