package analytics

import (
	"fmt"
	"math"
)

// TrendWeeks is the number of calendar weeks in a trend, current week included.
const TrendWeeks = 12

// TrendWindowDays covers every date a 12-week trend can touch.
const TrendWindowDays = TrendWeeks * 7

// WeekBucket summarizes one Sunday-to-Saturday week of activity.
type WeekBucket struct {
	WeekStart    string `json:"week_start"`
	ActiveDays   int    `json:"active_days"`
	ExpectedDays int    `json:"expected_days"`
	Completions  int    `json:"completions"`
	Percentage   int    `json:"percentage"`
}

// Trend is a child's 12-week activity history, oldest week first.
type Trend struct {
	ProfileID     string       `json:"profile_id"`
	Weeks         []WeekBucket `json:"weeks"`
	OverallPct    int          `json:"overall_pct"`
	DeltaFromPrev int          `json:"delta_from_prev"`
}

// TrendInput carries one child's data for CalculateTrend.
type TrendInput struct {
	ProfileID     string
	Events        []LocalEvent
	Baseline      int
	Structured    bool
	AssignedDates []string
	Today         string
}

// CalculateTrend buckets a child's completions into the 12 calendar weeks
// ending with the current, partial week. Assignments dated after Today are
// not expected yet.
func CalculateTrend(in TrendInput) (Trend, error) {
	assigned := make(map[string]struct{}, len(in.AssignedDates))
	for _, d := range in.AssignedDates {
		if _, err := parseDate(d); err != nil {
			return Trend{}, fmt.Errorf("assignment for %s: %w", in.ProfileID, err)
		}
		if d > in.Today {
			continue
		}
		assigned[d] = struct{}{}
	}

	activeByDate := make(map[string]int)
	for _, e := range in.Events {
		if e.Active() {
			activeByDate[e.Date]++
		}
	}

	trend := Trend{ProfileID: in.ProfileID, Weeks: make([]WeekBucket, 0, TrendWeeks)}
	currentStart := WeekStart(in.Today)
	total := 0

	for w := TrendWeeks - 1; w >= 0; w-- {
		start := AddDays(currentStart, -7*w)
		end := AddDays(start, 7)
		bucket := WeekBucket{WeekStart: start}

		for date, n := range activeByDate {
			if date >= start && date < end {
				bucket.ActiveDays++
				bucket.Completions += n
			}
		}

		assignedDays := 0
		for date := range assigned {
			if date >= start && date < end {
				assignedDays++
			}
		}

		bucket.ExpectedDays = WeeklyExpectation(in.Baseline, assignedDays, in.Structured)
		if w == 0 {
			elapsed := int(Weekday(in.Today)) + 1
			if bucket.ExpectedDays > elapsed {
				bucket.ExpectedDays = elapsed
			}
		}
		bucket.Percentage = percentage(bucket.ActiveDays, bucket.ExpectedDays)

		total += bucket.Percentage
		trend.Weeks = append(trend.Weeks, bucket)
	}

	trend.OverallPct = int(math.Round(float64(total) / TrendWeeks))
	trend.DeltaFromPrev = trend.Weeks[TrendWeeks-1].Percentage - trend.Weeks[TrendWeeks-2].Percentage
	return trend, nil
}

// EmptyTrend is the neutral trend for a child with no computable data.
func EmptyTrend(profileID, today string) Trend {
	trend := Trend{ProfileID: profileID, Weeks: make([]WeekBucket, 0, TrendWeeks)}
	currentStart := WeekStart(today)
	for w := TrendWeeks - 1; w >= 0; w-- {
		trend.Weeks = append(trend.Weeks, WeekBucket{WeekStart: AddDays(currentStart, -7*w)})
	}
	return trend
}
