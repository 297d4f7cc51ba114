package generate

import (
	"fmt"
	"unicode/utf8"

	"github.com/hrygo/planweaver/internal/profile"
	"github.com/hrygo/planweaver/store"
)

var knownActivityTypes = map[string]bool{
	"学习": true,
	"工作": true,
	"休息": true,
	"娱乐": true,
	"运动": true,
	"饮食": true,
	"社交": true,
	"创作": true,
}

// validateActivities checks a draft against the structural rules and returns
// human-readable findings. The findings feed back into the next round's
// prompt, so they are written in the language the model is prompted in.
func validateActivities(p *profile.Profile, activities []store.Activity) []string {
	var findings []string

	if n := len(activities); n < p.MinActivities || n > p.MaxActivities {
		findings = append(findings, fmt.Sprintf("活动数量为 %d，要求在 %d 到 %d 之间", n, p.MinActivities, p.MaxActivities))
	}

	for i, a := range activities {
		if a.Title == "" {
			findings = append(findings, fmt.Sprintf("第 %d 个活动缺少标题", i+1))
		}
		if l := utf8.RuneCountInString(a.Description); l < p.MinDescriptionLen || l > p.MaxDescriptionLen {
			findings = append(findings, fmt.Sprintf("活动「%s」的描述长度为 %d 字，要求在 %d 到 %d 之间", a.Title, l, p.MinDescriptionLen, p.MaxDescriptionLen))
		}
		if !knownActivityTypes[a.Type] {
			findings = append(findings, fmt.Sprintf("活动「%s」的类型「%s」不在允许列表中", a.Title, a.Type))
		}
		if i > 0 {
			prev := activities[i-1]
			if a.StartMinutes < prev.StartMinutes {
				findings = append(findings, fmt.Sprintf("活动「%s」的开始时间早于前一个活动", a.Title))
			}
			if a.OverlapsWith(&prev) {
				findings = append(findings, fmt.Sprintf("活动「%s」与「%s」的时间段重叠", a.Title, prev.Title))
			}
		}
	}

	return findings
}
