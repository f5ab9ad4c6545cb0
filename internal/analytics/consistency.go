package analytics

import "math"

// ConsistencyWindowDays is the trailing window used for the consistency score.
const ConsistencyWindowDays = 30

// CalculateConsistency scores habit strength over the trailing 30 local days
// ending today: active days against the days the baseline expects in 30 days.
// The result is clamped to 0..100.
func CalculateConsistency(dates []string, expectedPerWeek int, today string) int {
	expected := int(math.Round(float64(expectedPerWeek) * ConsistencyWindowDays / 7))
	if expected <= 0 {
		return 0
	}

	from := AddDays(today, -(ConsistencyWindowDays - 1))
	active := 0
	for _, d := range uniqueDates(dates) {
		if d >= from && d <= today {
			active++
		}
	}
	return percentage(active, expected)
}

// percentage returns round(part/whole*100) clamped to 0..100, or 0 when whole
// is not positive.
func percentage(part, whole int) int {
	if whole <= 0 || part <= 0 {
		return 0
	}
	pct := int(math.Round(float64(part) / float64(whole) * 100))
	if pct > 100 {
		return 100
	}
	return pct
}
