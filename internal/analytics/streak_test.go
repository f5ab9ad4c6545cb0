package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const today = "2026-01-27"

func daysAgo(n int) string {
	return AddDays(today, -n)
}

func TestCalculateStreak(t *testing.T) {
	tests := []struct {
		name  string
		dates []string
		want  Streak
	}{
		{
			name:  "no activity",
			dates: nil,
			want:  Streak{},
		},
		{
			name:  "single day today",
			dates: []string{today},
			want:  Streak{Current: 1, Longest: 1},
		},
		{
			name:  "same day twice counts once",
			dates: []string{today, today},
			want:  Streak{Current: 1, Longest: 1},
		},
		{
			name:  "three consecutive days ending today",
			dates: []string{daysAgo(2), today, daysAgo(1)},
			want:  Streak{Current: 3, Longest: 3},
		},
		{
			name:  "one missed day is forgiven",
			dates: []string{today, daysAgo(2)},
			want:  Streak{Current: 2, Longest: 2},
		},
		{
			name:  "two missed days break the streak",
			dates: []string{today, daysAgo(3)},
			want:  Streak{Current: 1, Longest: 1},
		},
		{
			name:  "streak ending yesterday is still current",
			dates: []string{daysAgo(1), daysAgo(2)},
			want:  Streak{Current: 2, Longest: 2},
		},
		{
			name:  "freshest activity two days ago",
			dates: []string{daysAgo(2), daysAgo(3), daysAgo(4)},
			want:  Streak{Current: 0, Longest: 3},
		},
		{
			name: "longest run in the past",
			dates: []string{
				today,
				daysAgo(30), daysAgo(31), daysAgo(32), daysAgo(34), daysAgo(35),
			},
			want: Streak{Current: 1, Longest: 5},
		},
		{
			name:  "future dates do not start a streak",
			dates: []string{AddDays(today, 1)},
			want:  Streak{Current: 0, Longest: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateStreak(tt.dates, today))
		})
	}
}

func TestCalculateStreakStaleActivityIsZero(t *testing.T) {
	for newest := 2; newest < 40; newest++ {
		dates := []string{daysAgo(newest), daysAgo(newest + 1), daysAgo(newest + 2)}
		assert.Equal(t, 0, CalculateStreak(dates, today).Current, "newest activity %d days ago", newest)
	}
}

func TestMilestoneFor(t *testing.T) {
	tests := []struct {
		days int
		want MilestoneTier
	}{
		{0, MilestoneNone},
		{6, MilestoneNone},
		{7, MilestoneBuilding},
		{13, MilestoneBuilding},
		{14, MilestoneStrengthening},
		{21, MilestoneForming},
		{29, MilestoneForming},
		{30, MilestoneFormed},
		{120, MilestoneFormed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MilestoneFor(tt.days), "days=%d", tt.days)
	}
}
