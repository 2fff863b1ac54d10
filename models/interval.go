package models

import (
	"fmt"
	"time"
)

// Interval is a named round duration class scheduled independently of the others
type Interval struct {
	Label    string        `yaml:"label"`
	Duration time.Duration `yaml:"duration"`
}

// MaxIntervalLabelLength matches the rounds.interval_label column width
const MaxIntervalLabelLength = 16

// DefaultIntervals is the registry used when no override file is configured.
// Order is preserved when iterating.
var DefaultIntervals = []Interval{
	{Label: "30s", Duration: 30 * time.Second},
	{Label: "1m", Duration: time.Minute},
	{Label: "3m", Duration: 3 * time.Minute},
	{Label: "5m", Duration: 5 * time.Minute},
}

// ValidateIntervals checks that labels are unique and non-empty and durations positive
func ValidateIntervals(intervals []Interval) error {
	if len(intervals) == 0 {
		return fmt.Errorf("at least one interval is required")
	}

	seen := make(map[string]bool, len(intervals))
	for _, interval := range intervals {
		if interval.Label == "" {
			return fmt.Errorf("interval label cannot be empty")
		}
		if len(interval.Label) > MaxIntervalLabelLength {
			return fmt.Errorf("interval label %q is longer than %d characters", interval.Label, MaxIntervalLabelLength)
		}
		if interval.Duration <= 0 {
			return fmt.Errorf("interval %s must have a positive duration", interval.Label)
		}
		if seen[interval.Label] {
			return fmt.Errorf("duplicate interval label %s", interval.Label)
		}
		seen[interval.Label] = true
	}

	return nil
}

// FindInterval returns the interval with the given label
func FindInterval(intervals []Interval, label string) (Interval, bool) {
	for _, interval := range intervals {
		if interval.Label == label {
			return interval, true
		}
	}
	return Interval{}, false
}
