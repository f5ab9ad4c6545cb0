package analytics

// RoutineWindowDays is the trailing window used to classify routines.
const RoutineWindowDays = 30

// morningCutoffHour splits morning (before noon) from evening completions.
const morningCutoffHour = 12

// Preferred completion times.
const (
	RoutineMorning = "morning"
	RoutineEvening = "evening"
	RoutineMixed   = "mixed"
)

// Routine describes when a child habitually completes chores.
type Routine struct {
	ProfileID    string `json:"profile_id"`
	MorningCount int    `json:"morning_count"`
	EveningCount int    `json:"evening_count"`
	MorningPct   int    `json:"morning_pct"`
	Preferred    string `json:"preferred,omitempty"`
}

// ClassifyRoutine counts morning and evening completions among active events
// in the trailing 30 local days ending today.
func ClassifyRoutine(profileID string, events []LocalEvent, today string) Routine {
	r := Routine{ProfileID: profileID}
	from := AddDays(today, -(RoutineWindowDays - 1))

	for _, e := range events {
		if !e.Active() || e.Date < from || e.Date > today {
			continue
		}
		if e.Hour < morningCutoffHour {
			r.MorningCount++
		} else {
			r.EveningCount++
		}
	}

	total := r.MorningCount + r.EveningCount
	r.MorningPct = percentage(r.MorningCount, total)
	switch {
	case total == 0:
	case r.MorningCount > r.EveningCount:
		r.Preferred = RoutineMorning
	case r.EveningCount > r.MorningCount:
		r.Preferred = RoutineEvening
	default:
		r.Preferred = RoutineMixed
	}
	return r
}
