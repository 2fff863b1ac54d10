package models

import (
	"fmt"
	"time"
)

// RoundStatus represents the lifecycle state of a round
type RoundStatus string

const (
	RoundStatusPending RoundStatus = "pending"
	RoundStatusSettled RoundStatus = "settled"
)

// periodLayout renders year..second; milliseconds are appended separately so the
// result stays a fixed-width digit string.
const periodLayout = "20060102150405"

// Round is a single betting window for one interval
type Round struct {
	ID           int64       `db:"id"`
	Period       string      `db:"period"`
	Interval     string      `db:"interval_label"`
	SerialNumber int64       `db:"serial_number"`
	StartTime    time.Time   `db:"start_time"`
	EndTime      time.Time   `db:"end_time"`
	Status       RoundStatus `db:"status"`
	ResultNumber *int16      `db:"result_number"`
	ResultAt     *time.Time  `db:"result_at"`
	CreatedAt    time.Time   `db:"created_at"`
}

// Covers reports whether t falls inside the half-open window [StartTime, EndTime)
func (r *Round) Covers(t time.Time) bool {
	return !t.Before(r.StartTime) && t.Before(r.EndTime)
}

// IsActiveAt reports whether the round is pending and covers t
func (r *Round) IsActiveAt(t time.Time) bool {
	return r.Status == RoundStatusPending && r.Covers(t)
}

// IsExpiredAt reports whether the round is pending and its window closed before t
func (r *Round) IsExpiredAt(t time.Time) bool {
	return r.Status == RoundStatusPending && r.EndTime.Before(t)
}

// Remaining returns how long the window stays open after t, never negative
func (r *Round) Remaining(t time.Time) time.Duration {
	if d := r.EndTime.Sub(t); d > 0 {
		return d
	}
	return 0
}

// FormatPeriod derives the fixed-width, lexically sortable period label from a start time.
// Format: YYYYMMDDhhmmss followed by three millisecond digits, always in UTC.
func FormatPeriod(start time.Time) string {
	start = start.UTC()
	return fmt.Sprintf("%s%03d", start.Format(periodLayout), start.Nanosecond()/int(time.Millisecond))
}

// ResultColors returns the color labels that win for a result digit
func ResultColors(digit int) []string {
	var colors []string
	for _, color := range []string{ColorGreen, ColorRed, ColorViolet} {
		if digitIn(digit, colorDigits[color]) {
			colors = append(colors, color)
		}
	}
	return colors
}

// ResultSize returns "big" or "small" for a result digit
func ResultSize(digit int) string {
	if digitIn(digit, sizeDigits[SizeBig]) {
		return SizeBig
	}
	return SizeSmall
}
