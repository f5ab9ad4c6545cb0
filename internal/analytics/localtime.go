// Package analytics turns chore-completion timestamps into behavioral metrics:
// streaks, consistency, weekly trends, routines and this-week activity.
//
// Every calculator works on local calendar dates ("2006-01-02") resolved in the
// family's timezone and takes an explicit reference date instead of reading the
// wall clock.
package analytics

import (
	"fmt"
	"time"
)

// DateLayout is the local calendar date format used throughout the package.
const DateLayout = "2006-01-02"

// DefaultTimezone applies when a family has no timezone configured.
const DefaultTimezone = "UTC"

// ConfigurationError reports an unusable timezone identifier.
type ConfigurationError struct {
	Timezone string
	Err      error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid timezone %q: %v", e.Timezone, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// LoadTimezone resolves an IANA timezone name. An empty name means the family
// never configured one and resolves to DefaultTimezone; anything else that
// cannot be loaded is a *ConfigurationError.
func LoadTimezone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &ConfigurationError{Timezone: name, Err: err}
	}
	return loc, nil
}

// LocalDate returns the calendar date of t in loc.
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// LocalHour returns the hour of day (0-23) of t in loc.
func LocalHour(t time.Time, loc *time.Location) int {
	return t.In(loc).Hour()
}

// LocalDateIn is LocalDate for a timezone name.
func LocalDateIn(t time.Time, timezone string) (string, error) {
	loc, err := LoadTimezone(timezone)
	if err != nil {
		return "", err
	}
	return LocalDate(t, loc), nil
}

// LocalHourIn is LocalHour for a timezone name.
func LocalHourIn(t time.Time, timezone string) (int, error) {
	loc, err := LoadTimezone(timezone)
	if err != nil {
		return 0, err
	}
	return LocalHour(t, loc), nil
}

// parseDate parses a local calendar date into a UTC midnight instant so that
// day arithmetic never crosses a DST transition.
func parseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t, nil
}

// mustParseDate is for dates already produced by LocalDate or validated
// with parseDate.
func mustParseDate(date string) time.Time {
	t, err := parseDate(date)
	if err != nil {
		panic(err)
	}
	return t
}

// AddDays shifts a calendar date by n days. date must be in DateLayout.
func AddDays(date string, n int) string {
	return mustParseDate(date).AddDate(0, 0, n).Format(DateLayout)
}

// DaysBetween returns the number of calendar days from a to b (b - a).
func DaysBetween(a, b string) int {
	return int(mustParseDate(b).Sub(mustParseDate(a)).Hours() / 24)
}

// WeekStart returns the Sunday that starts the week containing date.
func WeekStart(date string) string {
	t := mustParseDate(date)
	return t.AddDate(0, 0, -int(t.Weekday())).Format(DateLayout)
}

// StartOfDay returns the instant local midnight begins on date in loc.
func StartOfDay(date string, loc *time.Location) time.Time {
	d := mustParseDate(date)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// Weekday returns the day of week of a calendar date.
func Weekday(date string) time.Weekday {
	return mustParseDate(date).Weekday()
}

// LocalEvent is a completion already resolved into the family's local time.
type LocalEvent struct {
	ProfileID string
	Date      string
	Hour      int
	Points    int
}

// Active reports whether the event counts as activity.
func (e LocalEvent) Active() bool {
	return e.Points > 0
}
