package generate

import (
	"unicode/utf8"

	"github.com/hrygo/planweaver/internal/profile"
	"github.com/hrygo/planweaver/store"
)

// ScoreWeights distributes the quality score across the four dimensions.
// They sum to 1.0 so the score stays in [0, 1].
type ScoreWeights struct {
	Count     float64
	Length    float64
	Diversity float64
	Coverage  float64
}

// DefaultScoreWeights favors count and length, the two dimensions the model
// most often misses, over diversity and coverage.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Count:     0.30,
		Length:    0.25,
		Diversity: 0.20,
		Coverage:  0.25,
	}
}

// scoreActivities rates a validated draft in [0, 1]. Each dimension is the
// fraction of its requirement that the draft meets, so fixing any finding
// can only raise the score.
func scoreActivities(p *profile.Profile, w ScoreWeights, activities []store.Activity) float64 {
	if len(activities) == 0 {
		return 0
	}

	countScore := ratioInRange(len(activities), p.MinActivities, p.MaxActivities)

	inLen := 0
	for _, a := range activities {
		l := utf8.RuneCountInString(a.Description)
		if l >= p.MinDescriptionLen && l <= p.MaxDescriptionLen {
			inLen++
		}
	}
	lengthScore := float64(inLen) / float64(len(activities))

	types := make(map[string]bool)
	for _, a := range activities {
		types[a.Type] = true
	}
	diversityScore := float64(len(types)) / float64(len(knownActivityTypes))
	if diversityScore > 1 {
		diversityScore = 1
	}

	// Coverage measures how much of the waking day the plan fills.
	covered := 0
	for _, a := range activities {
		covered += a.EndMinutes - a.StartMinutes
	}
	const wakingMinutes = 16 * 60
	coverageScore := float64(covered) / wakingMinutes
	if coverageScore > 1 {
		coverageScore = 1
	}

	return w.Count*countScore + w.Length*lengthScore + w.Diversity*diversityScore + w.Coverage*coverageScore
}

// ratioInRange is 1.0 inside [min, max] and degrades linearly outside it.
func ratioInRange(n, min, max int) float64 {
	switch {
	case n >= min && n <= max:
		return 1
	case n < min:
		return float64(n) / float64(min)
	default:
		return float64(max) / float64(n)
	}
}
