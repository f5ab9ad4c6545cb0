package analytics

import "sort"

// streakGraceDays is the largest gap between two active dates that still
// extends a streak: missing a single day does not reset progress.
const streakGraceDays = 2

// Streak holds current and longest streak lengths in days.
type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// MilestoneTier labels habit-formation progress for a streak length.
type MilestoneTier string

const (
	MilestoneNone          MilestoneTier = "none"
	MilestoneBuilding      MilestoneTier = "building"
	MilestoneStrengthening MilestoneTier = "strengthening"
	MilestoneForming       MilestoneTier = "forming"
	MilestoneFormed        MilestoneTier = "formed"
)

// MilestoneFor returns the tier reached by a streak of the given length.
func MilestoneFor(days int) MilestoneTier {
	switch {
	case days >= 30:
		return MilestoneFormed
	case days >= 21:
		return MilestoneForming
	case days >= 14:
		return MilestoneStrengthening
	case days >= 7:
		return MilestoneBuilding
	default:
		return MilestoneNone
	}
}

// uniqueDates dedupes local dates and returns them in ascending order.
func uniqueDates(dates []string) []string {
	seen := make(map[string]struct{}, len(dates))
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// CalculateStreak computes the current and longest streaks from local
// activity dates. today is the reference local date.
//
// The current streak is zero unless the most recent active date is today or
// yesterday. Dates later than today are ignored for the current streak.
func CalculateStreak(dates []string, today string) Streak {
	asc := uniqueDates(dates)
	if len(asc) == 0 {
		return Streak{}
	}

	var result Streak

	// Walk backwards from the newest date not after today.
	newest := len(asc) - 1
	for newest >= 0 && asc[newest] > today {
		newest--
	}
	if newest >= 0 && DaysBetween(asc[newest], today) <= 1 {
		result.Current = 1
		for i := newest - 1; i >= 0; i-- {
			if DaysBetween(asc[i], asc[i+1]) > streakGraceDays {
				break
			}
			result.Current++
		}
	}

	run := 1
	result.Longest = 1
	for i := 1; i < len(asc); i++ {
		if DaysBetween(asc[i-1], asc[i]) <= streakGraceDays {
			run++
		} else {
			run = 1
		}
		if run > result.Longest {
			result.Longest = run
		}
	}
	if result.Current > result.Longest {
		result.Longest = result.Current
	}

	return result
}
