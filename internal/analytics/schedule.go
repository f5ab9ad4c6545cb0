package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ScheduleConfig is a family's chore-scheduling configuration. It is one of
// NoSchedule, FixedRotation or DynamicRotation.
type ScheduleConfig interface {
	scheduleConfig()
}

// NoSchedule is a manual household: chores are assigned ad hoc, day by day.
type NoSchedule struct{}

// FixedRotation assigns each child a slot and repeats a cycle of weekly
// patterns, one pattern per rotation week.
type FixedRotation struct {
	PresetKey  string
	StartDate  string            // first Sunday of the cycle; empty means week 0 is always active
	ChildSlots map[string]string // profile ID -> slot
	Weeks      []WeekPattern
}

// DynamicRotation assigns chores algorithmically; there is no fixed pattern to
// derive expectations from.
type DynamicRotation struct {
	PresetKey  string
	ChildSlots map[string]string
}

// WeekPattern maps a slot to its chores for each weekday.
type WeekPattern map[string]DayChores

// DayChores lists chore names per weekday.
type DayChores map[time.Weekday][]string

func (NoSchedule) scheduleConfig()      {}
func (FixedRotation) scheduleConfig()   {}
func (DynamicRotation) scheduleConfig() {}

// IsStructured reports whether cfg is a rotation preset rather than manual
// scheduling. Manual households get per-week expectations from assignments.
func IsStructured(cfg ScheduleConfig) bool {
	switch cfg.(type) {
	case FixedRotation, DynamicRotation:
		return true
	default:
		return false
	}
}

// ExpectedDaysPerWeek returns how many days a week the child is expected to
// have chore activity.
func ExpectedDaysPerWeek(cfg ScheduleConfig, childID string) int {
	switch c := cfg.(type) {
	case FixedRotation:
		slot, ok := c.ChildSlots[childID]
		if !ok {
			return 7
		}
		for _, week := range c.Weeks {
			days, ok := week[slot]
			if !ok {
				continue
			}
			count := 0
			for _, chores := range days {
				if len(chores) > 0 {
					count++
				}
			}
			return count
		}
		return 7
	case DynamicRotation:
		return 7
	case NoSchedule, nil:
		return 7
	default:
		return 7
	}
}

// WeeklyExpectation resolves the expected active days for one calendar week.
//
// Households on a rotation always use the baseline. Manual households adapt to
// what was actually scheduled: the number of distinct dates with an assignment
// that week, or the baseline when nothing was assigned.
func WeeklyExpectation(baseline, assignedDays int, structured bool) int {
	if structured || assignedDays == 0 {
		return baseline
	}
	return assignedDays
}

// ChoresOn returns the chores a rotation lists for a child on a given date,
// using the rotation week active at that date.
func (r FixedRotation) ChoresOn(childID, date string) []string {
	slot, ok := r.ChildSlots[childID]
	if !ok || len(r.Weeks) == 0 {
		return nil
	}
	idx := 0
	if r.StartDate != "" {
		if _, err := parseDate(r.StartDate); err == nil {
			weeks := DaysBetween(WeekStart(r.StartDate), WeekStart(date)) / 7
			idx = ((weeks % len(r.Weeks)) + len(r.Weeks)) % len(r.Weeks)
		}
	}
	days, ok := r.Weeks[idx][slot]
	if !ok {
		return nil
	}
	return days[Weekday(date)]
}

// scheduleDocument is the JSON form stored with the family settings.
type scheduleDocument struct {
	Mode       string                           `json:"mode"`
	PresetKey  string                           `json:"preset_key"`
	StartDate  string                           `json:"start_date"`
	ChildSlots map[string]string                `json:"child_slots"`
	Weeks      []map[string]map[string][]string `json:"weeks"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// DecodeScheduleConfig parses the stored schedule document. An empty document
// is a manual household.
func DecodeScheduleConfig(raw []byte) (ScheduleConfig, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return NoSchedule{}, nil
	}

	var doc scheduleDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode schedule config: %w", err)
	}

	switch strings.ToLower(doc.Mode) {
	case "", "manual", "none":
		return NoSchedule{}, nil
	case "dynamic":
		return DynamicRotation{PresetKey: doc.PresetKey, ChildSlots: doc.ChildSlots}, nil
	case "rotation", "fixed":
		rotation := FixedRotation{
			PresetKey:  doc.PresetKey,
			StartDate:  doc.StartDate,
			ChildSlots: doc.ChildSlots,
		}
		for i, week := range doc.Weeks {
			pattern := make(WeekPattern, len(week))
			for slot, days := range week {
				chores := make(DayChores, len(days))
				for name, list := range days {
					wd, ok := weekdayNames[strings.ToLower(name)]
					if !ok {
						return nil, fmt.Errorf("schedule week %d slot %q: unknown weekday %q", i, slot, name)
					}
					chores[wd] = list
				}
				pattern[slot] = chores
			}
			rotation.Weeks = append(rotation.Weeks, pattern)
		}
		return rotation, nil
	default:
		return nil, fmt.Errorf("unsupported schedule mode %q", doc.Mode)
	}
}
