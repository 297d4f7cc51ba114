package store

import (
	"fmt"
	"sort"
)

const minutesPerDay = 24 * 60

// Activity is one planned period within a daily schedule.
// Times are minutes from midnight; EndMinutes may exceed 1440 for
// activities that run past midnight.
type Activity struct {
	StartMinutes int    `json:"start_minutes"`
	EndMinutes   int    `json:"end_minutes"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Type         string `json:"type"`
}

// StartClock formats the start time as HH:MM.
func (a *Activity) StartClock() string {
	return formatClock(a.StartMinutes)
}

// EndClock formats the end time as HH:MM.
func (a *Activity) EndClock() string {
	return formatClock(a.EndMinutes % minutesPerDay)
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Contains reports whether the given minute of day falls inside the activity,
// handling windows that cross midnight.
func (a *Activity) Contains(minuteOfDay int) bool {
	if a.EndMinutes > minutesPerDay {
		return (a.StartMinutes <= minuteOfDay && minuteOfDay < minutesPerDay) ||
			(0 <= minuteOfDay && minuteOfDay < a.EndMinutes-minutesPerDay)
	}
	return a.StartMinutes <= minuteOfDay && minuteOfDay < a.EndMinutes
}

// OverlapsWith reports whether two activity windows overlap.
func (a *Activity) OverlapsWith(other *Activity) bool {
	return a.StartMinutes < other.EndMinutes && other.StartMinutes < a.EndMinutes
}

// DailySchedule is the complete set of activities for one calendar date
// plus the metadata of the generation run that produced it.
type DailySchedule struct {
	ID         int32
	UID        string
	Date       string // "2006-01-02", identity key
	CreatedTs  int64
	UpdatedTs  int64
	Activities []Activity

	// Generation metadata
	RoundsUsed   int
	QualityScore float64
	Model        string
	Provider     string
}

// SortActivities orders activities by start time.
func (s *DailySchedule) SortActivities() {
	sort.Slice(s.Activities, func(i, j int) bool {
		return s.Activities[i].StartMinutes < s.Activities[j].StartMinutes
	})
}

// ActivityAt returns the activity covering the given minute of day.
// When several overlapping entries match, the last one wins.
func (s *DailySchedule) ActivityAt(minuteOfDay int) *Activity {
	var found *Activity
	for i := range s.Activities {
		if s.Activities[i].Contains(minuteOfDay) {
			found = &s.Activities[i]
		}
	}
	return found
}

// UpcomingAfter returns the activities starting after the given minute of day,
// ordered by start time.
func (s *DailySchedule) UpcomingAfter(minuteOfDay int) []Activity {
	var upcoming []Activity
	for _, a := range s.Activities {
		if a.StartMinutes > minuteOfDay {
			upcoming = append(upcoming, a)
		}
	}
	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].StartMinutes < upcoming[j].StartMinutes
	})
	return upcoming
}

// FindSchedule is the find condition for daily schedules.
type FindSchedule struct {
	ID   *int32
	UID  *string
	Date *string

	// Pagination
	Limit  *int
	Offset *int
}

// DeleteSchedule is the delete request for a daily schedule.
type DeleteSchedule struct {
	UID string
}
