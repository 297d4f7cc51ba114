package generate

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/planweaver/store"
)

// rawActivity is the wire shape the model is asked to produce.
type rawActivity struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// parseActivities extracts the JSON activity array from a model response.
// Models routinely wrap JSON in markdown fences or surround it with prose,
// so the parser locates the outermost array before unmarshaling.
func parseActivities(output string) ([]store.Activity, error) {
	text := strings.TrimSpace(output)
	text = stripFences(text)

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON array in model output")
	}

	var raws []rawActivity
	if err := json.Unmarshal([]byte(text[start:end+1]), &raws); err != nil {
		return nil, errors.Wrap(err, "unmarshal activity array")
	}
	if len(raws) == 0 {
		return nil, errors.New("model returned an empty activity array")
	}

	activities := make([]store.Activity, 0, len(raws))
	for i, r := range raws {
		startMin, err := parseClockMinutes(r.Start)
		if err != nil {
			return nil, errors.Wrapf(err, "activity %d start", i)
		}
		endMin, err := parseClockMinutes(r.End)
		if err != nil {
			return nil, errors.Wrapf(err, "activity %d end", i)
		}
		// An end at or before the start means the activity runs past
		// midnight; store it in extended minutes so windows stay ordered.
		if endMin <= startMin {
			endMin += 24 * 60
		}
		activities = append(activities, store.Activity{
			StartMinutes: startMin,
			EndMinutes:   endMin,
			Title:        strings.TrimSpace(r.Title),
			Description:  strings.TrimSpace(r.Description),
			Type:         strings.TrimSpace(r.Type),
		})
	}
	return activities, nil
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func parseClockMinutes(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, errors.Errorf("invalid clock %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, errors.Errorf("invalid clock %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, errors.Errorf("invalid clock %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, errors.Errorf("clock %q out of range", s)
	}
	return h*60 + m, nil
}
