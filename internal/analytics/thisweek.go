package analytics

// DayActivity is one local day of the current Sunday-to-Saturday week.
type DayActivity struct {
	Date         string `json:"date"`
	DayLabel     string `json:"day_label"`
	PointsEarned int    `json:"points_earned"`
	Completions  int    `json:"completions"`
	HadActivity  bool   `json:"had_activity"`
}

var dayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// ComposeThisWeek returns exactly seven days, Sunday through Saturday of the
// week containing today, with points summed and active completions counted
// per local date.
func ComposeThisWeek(events []LocalEvent, today string) []DayActivity {
	start := WeekStart(today)
	days := make([]DayActivity, 7)
	index := make(map[string]int, 7)
	for i := range days {
		date := AddDays(start, i)
		days[i] = DayActivity{Date: date, DayLabel: dayLabels[i]}
		index[date] = i
	}

	for _, e := range events {
		if i, ok := index[e.Date]; ok {
			days[i].PointsEarned += e.Points
			if e.Active() {
				days[i].Completions++
			}
		}
	}
	for i := range days {
		days[i].HadActivity = days[i].PointsEarned > 0
	}
	return days
}
