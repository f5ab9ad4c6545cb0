package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chorequest/internal/analytics"
	"chorequest/internal/models"
)

// 2026-01-27 is a Tuesday; its week starts Sunday 2026-01-25.
var tuesdayMorning = time.Date(2026, 1, 27, 9, 0, 0, 0, time.UTC)

type fakeCompletions struct {
	mu     sync.Mutex
	events []models.CompletionEvent
	err    error
	calls  int
	from   time.Time
	to     time.Time
}

func (f *fakeCompletions) ListCompletions(_ context.Context, familyID int64, from, to time.Time) ([]models.CompletionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.from, f.to = from, to
	if f.err != nil {
		return nil, f.err
	}
	var out []models.CompletionEvent
	for _, e := range f.events {
		if e.FamilyID == familyID && e.Points > 0 && !e.OccurredAt.Before(from) && e.OccurredAt.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeAssignments struct {
	mu          sync.Mutex
	assignments []models.ChoreAssignment
	calls       int
	fromDate    string
	toDate      string
}

func (f *fakeAssignments) ListAssignments(_ context.Context, familyID int64, fromDate, toDate string) ([]models.ChoreAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.fromDate, f.toDate = fromDate, toDate
	var out []models.ChoreAssignment
	for _, a := range f.assignments {
		if a.FamilyID == familyID && a.AssignedDate >= fromDate && a.AssignedDate <= toDate {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeFamilies map[int64]*models.Family

func (f fakeFamilies) GetFamilyByID(_ context.Context, id int64) (*models.Family, error) {
	return f[id], nil
}

type fakeKids map[int64][]models.Kid

func (f fakeKids) GetFamilyKids(_ context.Context, familyID int64) ([]models.Kid, error) {
	return f[familyID], nil
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string][]byte)
	}
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.data, key)
	}
	return nil
}

func done(kidID int64, at time.Time) models.CompletionEvent {
	return models.CompletionEvent{FamilyID: 1, KidID: kidID, Points: 5, Reason: "chore", OccurredAt: at}
}

func assigned(kidID int64, date string) models.ChoreAssignment {
	return models.ChoreAssignment{FamilyID: 1, KidID: kidID, ChoreName: "dishes", AssignedDate: date}
}

var (
	ana  = models.Kid{ID: 10, FamilyID: 1, Name: "Ana"}
	luis = models.Kid{ID: 11, FamilyID: 1, Name: "Luis"}
)

func newTestInsightsService(c *fakeCompletions, a *fakeAssignments) *InsightsService {
	return NewInsightsService(fakeFamilies{}, fakeKids{}, c, a, nil, time.Minute, nil)
}

func TestGetInsightsLocalDateRollover(t *testing.T) {
	t.Run("eastern timezone moves activity forward", func(t *testing.T) {
		completions := &fakeCompletions{events: []models.CompletionEvent{
			done(ana.ID, time.Date(2026, 1, 24, 21, 0, 0, 0, time.UTC)),
		}}
		svc := newTestInsightsService(completions, &fakeAssignments{})

		fi, err := svc.GetInsights(context.Background(), InsightsRequest{
			FamilyID: 1,
			Schedule: analytics.DynamicRotation{},
			Children: []models.Kid{ana},
			Timezone: "Africa/Nairobi",
			Now:      tuesdayMorning,
		})
		require.NoError(t, err)

		week := fi.ThisWeekActivity[ana.ProfileID()]
		require.Len(t, week, 7)
		assert.Equal(t, "2026-01-25", week[0].Date)
		assert.True(t, week[0].HadActivity)
		assert.Equal(t, 1, fi.Routines[0].MorningCount, "midnight local is a morning completion")
	})

	t.Run("western timezone moves activity back", func(t *testing.T) {
		completions := &fakeCompletions{events: []models.CompletionEvent{
			done(ana.ID, time.Date(2026, 1, 25, 3, 0, 0, 0, time.UTC)),
		}}
		svc := newTestInsightsService(completions, &fakeAssignments{})

		fi, err := svc.GetInsights(context.Background(), InsightsRequest{
			FamilyID: 1,
			Schedule: analytics.DynamicRotation{},
			Children: []models.Kid{ana},
			Timezone: "America/Los_Angeles",
			Now:      tuesdayMorning,
		})
		require.NoError(t, err)

		for _, day := range fi.ThisWeekActivity[ana.ProfileID()] {
			assert.False(t, day.HadActivity, day.Date)
		}
		weeks := fi.Trends[0].Weeks
		assert.Equal(t, "2026-01-18", weeks[len(weeks)-2].WeekStart)
		assert.Equal(t, 1, weeks[len(weeks)-2].ActiveDays)
		assert.Equal(t, 1, fi.Routines[0].EveningCount)
	})
}

func TestGetInsightsFetchesOnce(t *testing.T) {
	t.Run("structured schedule skips assignments", func(t *testing.T) {
		completions := &fakeCompletions{}
		assignments := &fakeAssignments{}
		svc := newTestInsightsService(completions, assignments)

		_, err := svc.GetInsights(context.Background(), InsightsRequest{
			FamilyID: 1,
			Schedule: analytics.DynamicRotation{},
			Children: []models.Kid{ana, luis},
			Timezone: "UTC",
			Now:      tuesdayMorning,
		})
		require.NoError(t, err)

		assert.Equal(t, 1, completions.calls)
		assert.Equal(t, 0, assignments.calls)
		assert.Equal(t, time.Date(2025, 10, 30, 0, 0, 0, 0, time.UTC), completions.from.UTC())
		assert.Equal(t, time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC), completions.to.UTC())
	})

	t.Run("manual household reads assignments once", func(t *testing.T) {
		completions := &fakeCompletions{}
		assignments := &fakeAssignments{}
		svc := newTestInsightsService(completions, assignments)

		_, err := svc.GetInsights(context.Background(), InsightsRequest{
			FamilyID: 1,
			Schedule: analytics.NoSchedule{},
			Children: []models.Kid{ana, luis},
			Timezone: "UTC",
			Now:      tuesdayMorning,
		})
		require.NoError(t, err)

		assert.Equal(t, 1, completions.calls)
		assert.Equal(t, 1, assignments.calls)
		assert.Equal(t, "2025-11-09", assignments.fromDate)
		assert.Equal(t, "2026-01-31", assignments.toDate)
	})
}

func TestGetInsightsManualWeekExpectation(t *testing.T) {
	completions := &fakeCompletions{events: []models.CompletionEvent{
		done(ana.ID, time.Date(2026, 1, 26, 17, 0, 0, 0, time.UTC)),
		done(ana.ID, time.Date(2026, 1, 27, 7, 0, 0, 0, time.UTC)),
	}}
	assignments := &fakeAssignments{assignments: []models.ChoreAssignment{
		assigned(ana.ID, "2026-01-26"),
		assigned(ana.ID, "2026-01-27"),
	}}
	svc := newTestInsightsService(completions, assignments)

	fi, err := svc.GetInsights(context.Background(), InsightsRequest{
		FamilyID: 1,
		Schedule: analytics.NoSchedule{},
		Children: []models.Kid{ana},
		Timezone: "UTC",
		Now:      tuesdayMorning,
	})
	require.NoError(t, err)

	current := fi.Trends[0].Weeks[analytics.TrendWeeks-1]
	assert.Equal(t, 2, current.ExpectedDays)
	assert.Equal(t, 100, current.Percentage)
	assert.Equal(t, 2, fi.Streaks[0].CurrentStreak)
	assert.Equal(t, analytics.MilestoneNone, fi.Streaks[0].MilestoneTier)
	assert.Len(t, fi.Assignments, 2)
}

func TestGetInsightsIgnoresLaterAssignmentsThisWeek(t *testing.T) {
	completions := &fakeCompletions{events: []models.CompletionEvent{
		done(ana.ID, time.Date(2026, 1, 26, 17, 0, 0, 0, time.UTC)),
	}}
	assignments := &fakeAssignments{assignments: []models.ChoreAssignment{
		assigned(ana.ID, "2026-01-26"),
		assigned(ana.ID, "2026-01-29"),
		assigned(ana.ID, "2026-01-30"),
	}}
	svc := newTestInsightsService(completions, assignments)

	fi, err := svc.GetInsights(context.Background(), InsightsRequest{
		FamilyID: 1,
		Schedule: analytics.NoSchedule{},
		Children: []models.Kid{ana},
		Timezone: "UTC",
		Now:      tuesdayMorning,
	})
	require.NoError(t, err)

	current := fi.Trends[0].Weeks[analytics.TrendWeeks-1]
	assert.Equal(t, 1, current.ExpectedDays)
	assert.Equal(t, 100, current.Percentage)
	// Later chores still reach the weekly grid.
	assert.Len(t, fi.Assignments, 3)
}

func TestGetInsightsPartialFailure(t *testing.T) {
	completions := &fakeCompletions{events: []models.CompletionEvent{
		done(ana.ID, time.Date(2026, 1, 27, 7, 0, 0, 0, time.UTC)),
		done(luis.ID, time.Date(2026, 1, 27, 8, 0, 0, 0, time.UTC)),
	}}
	assignments := &fakeAssignments{assignments: []models.ChoreAssignment{
		assigned(ana.ID, "2026-01-27"),
		assigned(luis.ID, "2026-01-27"),
		{FamilyID: 1, KidID: luis.ID, ChoreName: "trash", AssignedDate: "2026-01-2"},
	}}
	svc := newTestInsightsService(completions, assignments)

	fi, err := svc.GetInsights(context.Background(), InsightsRequest{
		FamilyID: 1,
		Schedule: analytics.NoSchedule{},
		Children: []models.Kid{ana, luis},
		Timezone: "UTC",
		Now:      tuesdayMorning,
	})
	require.NoError(t, err)

	require.Len(t, fi.Results, 2)
	assert.NoError(t, fi.Results[0].Err)
	assert.Equal(t, 1, fi.Streaks[0].CurrentStreak)

	var partial *PartialComputationError
	require.True(t, errors.As(fi.Results[1].Err, &partial))
	assert.Equal(t, luis.ProfileID(), partial.ProfileID)
	assert.NotEmpty(t, fi.Results[1].Error)
	assert.Equal(t, 0, fi.Streaks[1].CurrentStreak)
	assert.Len(t, fi.Trends[1].Weeks, analytics.TrendWeeks)
	assert.Len(t, fi.ThisWeekActivity[luis.ProfileID()], 7)

	assert.Len(t, fi.Trends, 2)
	assert.Len(t, fi.Routines, 2)
	assert.Len(t, fi.Failed(), 1)
}

func TestGetInsightsInvalidTimezone(t *testing.T) {
	completions := &fakeCompletions{}
	svc := newTestInsightsService(completions, &fakeAssignments{})

	_, err := svc.GetInsights(context.Background(), InsightsRequest{
		FamilyID: 1,
		Children: []models.Kid{ana},
		Timezone: "Mars/Olympus_Mons",
		Now:      tuesdayMorning,
	})

	var cfgErr *analytics.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, 0, completions.calls)
}

func TestGetInsightsFetchError(t *testing.T) {
	svc := newTestInsightsService(&fakeCompletions{err: errors.New("ledger offline")}, &fakeAssignments{})

	_, err := svc.GetInsights(context.Background(), InsightsRequest{
		FamilyID: 1,
		Children: []models.Kid{ana},
		Timezone: "UTC",
		Now:      tuesdayMorning,
	})
	assert.ErrorContains(t, err, "ledger offline")
}

func TestGetInsightsEmptyFamily(t *testing.T) {
	svc := newTestInsightsService(&fakeCompletions{}, &fakeAssignments{})

	fi, err := svc.GetInsights(context.Background(), InsightsRequest{
		FamilyID: 1,
		Children: []models.Kid{ana},
		Timezone: "",
		Now:      tuesdayMorning,
	})
	require.NoError(t, err)

	assert.Equal(t, "UTC", fi.Timezone)
	assert.Zero(t, fi.TotalActiveDays)
	assert.Zero(t, fi.Streaks[0].CurrentStreak)
	assert.Zero(t, fi.Streaks[0].ConsistencyPercent)
	assert.Zero(t, fi.Trends[0].OverallPct)
	assert.Empty(t, fi.Routines[0].Preferred)
}

func TestGetInsightsTotalActiveDaysAndConsistency(t *testing.T) {
	rotation := analytics.FixedRotation{
		ChildSlots: map[string]string{ana.ProfileID(): "a", luis.ProfileID(): "a"},
		Weeks: []analytics.WeekPattern{{
			"a": {time.Monday: {"dishes"}, time.Wednesday: {"dishes"}, time.Friday: {"trash"}},
		}},
	}
	at := func(day int) time.Time { return time.Date(2026, 1, day, 18, 0, 0, 0, time.UTC) }
	completions := &fakeCompletions{events: []models.CompletionEvent{
		done(ana.ID, at(19)), done(ana.ID, at(21)), done(ana.ID, at(23)),
		done(luis.ID, at(23)), done(luis.ID, at(26)),
		{FamilyID: 1, KidID: 99, Points: 5, OccurredAt: at(20)},
	}}
	svc := newTestInsightsService(completions, &fakeAssignments{})

	fi, err := svc.GetInsights(context.Background(), InsightsRequest{
		FamilyID: 1,
		Schedule: rotation,
		Children: []models.Kid{ana, luis},
		Timezone: "UTC",
		Now:      tuesdayMorning,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, fi.TotalActiveDays)
	ci, ok := fi.Child(ana.ProfileID())
	require.True(t, ok)
	assert.Equal(t, 3, ci.ExpectedDaysPerWeek)
	// 3 active days against round(3*30/7) = 13 expected.
	assert.Equal(t, 23, ci.Streak.ConsistencyPercent)
	assert.Equal(t, 100, ci.Trend.Weeks[analytics.TrendWeeks-2].Percentage)
}

func TestForFamilyUsesCache(t *testing.T) {
	completions := &fakeCompletions{events: []models.CompletionEvent{
		done(ana.ID, time.Date(2026, 1, 27, 7, 0, 0, 0, time.UTC)),
	}}
	store := &mapCache{}
	svc := NewInsightsService(
		fakeFamilies{1: {ID: 1, Name: "Rivera", Timezone: "UTC", ScheduleConfig: `{"mode":"dynamic"}`}},
		fakeKids{1: {ana}},
		completions,
		&fakeAssignments{},
		store,
		time.Minute,
		nil,
	)
	svc.now = func() time.Time { return tuesdayMorning }

	first, err := svc.ForFamily(context.Background(), 1, time.Time{})
	require.NoError(t, err)
	second, err := svc.ForFamily(context.Background(), 1, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 1, completions.calls)
	assert.Contains(t, store.data, "insights:1:2026-01-27")
	assert.Equal(t, first.Streaks, second.Streaks)
	assert.True(t, second.Structured)

	_, err = svc.ForFamily(context.Background(), 1, tuesdayMorning)
	require.NoError(t, err)
	assert.Equal(t, 2, completions.calls, "explicit reference instants bypass the cache")
}

func TestInvalidateDropsCachedDay(t *testing.T) {
	store := &mapCache{data: map[string][]byte{
		"insights:1:2026-01-26": []byte("{}"),
		"insights:1:2026-01-27": []byte("{}"),
		"insights:1:2026-01-28": []byte("{}"),
		"insights:2:2026-01-27": []byte("{}"),
	}}
	svc := NewInsightsService(fakeFamilies{}, fakeKids{}, &fakeCompletions{}, &fakeAssignments{}, store, time.Minute, nil)
	svc.now = func() time.Time { return tuesdayMorning }

	require.NoError(t, svc.Invalidate(context.Background(), 1))
	assert.Equal(t, []string{"insights:2:2026-01-27"}, mapKeys(store.data))
}

func mapKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestForFamilyNotFound(t *testing.T) {
	svc := newTestInsightsService(&fakeCompletions{}, &fakeAssignments{})
	_, err := svc.ForFamily(context.Background(), 404, tuesdayMorning)
	assert.ErrorIs(t, err, ErrFamilyNotFound)
}

func TestRequestForUnreadableSchedule(t *testing.T) {
	svc := newTestInsightsService(&fakeCompletions{}, &fakeAssignments{})
	req := svc.RequestFor(&models.Family{ID: 1, ScheduleConfig: `{"mode":`}, []models.Kid{ana}, tuesdayMorning)
	assert.Equal(t, analytics.NoSchedule{}, req.Schedule)
	assert.Equal(t, "UTC", req.Timezone)
}

func TestRequestForDefaultTimezone(t *testing.T) {
	svc := newTestInsightsService(&fakeCompletions{}, &fakeAssignments{})
	svc.SetDefaultTimezone("Europe/Lisbon")

	req := svc.RequestFor(&models.Family{ID: 1}, nil, tuesdayMorning)
	assert.Equal(t, "Europe/Lisbon", req.Timezone)

	req = svc.RequestFor(&models.Family{ID: 1, Timezone: "Asia/Tokyo"}, nil, tuesdayMorning)
	assert.Equal(t, "Asia/Tokyo", req.Timezone)
}
