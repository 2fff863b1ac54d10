package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatPeriod(t *testing.T) {
	start := time.Date(2025, 3, 14, 9, 26, 53, 589*int(time.Millisecond), time.UTC)
	assert.Equal(t, "20250314092653589", FormatPeriod(start))

	// Non-UTC input is converted first
	local := start.In(time.FixedZone("UTC+2", 2*60*60))
	assert.Equal(t, "20250314092653589", FormatPeriod(local))

	assert.Equal(t, "20250101000000007", FormatPeriod(time.Date(2025, 1, 1, 0, 0, 0, 7*int(time.Millisecond), time.UTC)))
}

func TestRound_Window(t *testing.T) {
	start := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	round := &Round{
		StartTime: start,
		EndTime:   start.Add(time.Minute),
		Status:    RoundStatusPending,
	}

	assert.True(t, round.IsActiveAt(start))
	assert.True(t, round.IsActiveAt(start.Add(59*time.Second)))
	assert.False(t, round.IsActiveAt(start.Add(time.Minute)), "end time is exclusive")
	assert.False(t, round.IsExpiredAt(start.Add(time.Minute)))
	assert.True(t, round.IsExpiredAt(start.Add(time.Minute+time.Millisecond)))

	assert.Equal(t, 15*time.Second, round.Remaining(start.Add(45*time.Second)))
	assert.Equal(t, time.Duration(0), round.Remaining(start.Add(2*time.Minute)))

	round.Status = RoundStatusSettled
	assert.False(t, round.IsActiveAt(start))
	assert.False(t, round.IsExpiredAt(start.Add(2*time.Minute)))
}

func TestResultLabels(t *testing.T) {
	tests := []struct {
		digit  int
		colors []string
		size   string
	}{
		{0, []string{ColorViolet}, SizeSmall},
		{1, []string{ColorGreen}, SizeSmall},
		{2, []string{ColorRed}, SizeSmall},
		{5, []string{ColorViolet}, SizeBig},
		{9, []string{ColorGreen, ColorRed}, SizeBig},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.colors, ResultColors(tt.digit), "digit %d", tt.digit)
		assert.Equal(t, tt.size, ResultSize(tt.digit), "digit %d", tt.digit)
	}
}

func TestValidateIntervals(t *testing.T) {
	assert.NoError(t, ValidateIntervals(DefaultIntervals))
	assert.Error(t, ValidateIntervals(nil))
	assert.Error(t, ValidateIntervals([]Interval{{Label: "", Duration: time.Minute}}))
	assert.Error(t, ValidateIntervals([]Interval{{Label: "1m", Duration: 0}}))
	assert.NoError(t, ValidateIntervals([]Interval{{Label: "sixteen-chars-ok", Duration: time.Minute}}))
	assert.Error(t, ValidateIntervals([]Interval{{Label: "seventeen-chars-x", Duration: time.Minute}}))
	assert.Error(t, ValidateIntervals([]Interval{
		{Label: "1m", Duration: time.Minute},
		{Label: "1m", Duration: 2 * time.Minute},
	}))

	interval, ok := FindInterval(DefaultIntervals, "3m")
	assert.True(t, ok)
	assert.Equal(t, 3*time.Minute, interval.Duration)
	_, ok = FindInterval(DefaultIntervals, "2m")
	assert.False(t, ok)
}
