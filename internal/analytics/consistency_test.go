package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func consecutiveDays(n int) []string {
	dates := make([]string, n)
	for i := range dates {
		dates[i] = daysAgo(i)
	}
	return dates
}

func TestCalculateConsistencyEmpty(t *testing.T) {
	for expected := 1; expected <= 7; expected++ {
		assert.Equal(t, 0, CalculateConsistency(nil, expected, today))
	}
}

func TestCalculateConsistency(t *testing.T) {
	tests := []struct {
		name            string
		dates           []string
		expectedPerWeek int
		want            int
	}{
		{"thirty daily completions", consecutiveDays(30), 7, 100},
		{"capped when baseline is lower", consecutiveDays(30), 3, 100},
		{"half of the month", consecutiveDays(15), 7, 50},
		{"three a week baseline", consecutiveDays(6), 3, 46},
		{"zero baseline", consecutiveDays(10), 0, 0},
		{"outside the window", []string{daysAgo(30), daysAgo(45)}, 7, 0},
		{"duplicates do not inflate", []string{today, today, today}, 7, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateConsistency(tt.dates, tt.expectedPerWeek, today)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}
