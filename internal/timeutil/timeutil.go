// Package timeutil normalizes client timestamps to a single naive-UTC
// representation and holds the interval arithmetic shared by the booking and
// gate services.
package timeutil

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var ErrInvalidTimestamp = errors.New("invalid timestamp format, expected ISO 8601 (YYYY-MM-DDTHH:MM:SS)")

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseTimestamp parses an ISO 8601 timestamp. Zone-aware inputs are converted
// to UTC; zoneless inputs are taken as UTC already. The result always has a
// UTC location so comparisons across sources are consistent.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}

	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}

// FormatTimestamp renders a time the way the API emits it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05")
}

// Overlaps reports whether half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !(aEnd.Compare(bStart) <= 0 || aStart.Compare(bEnd) >= 0)
}

// RoundMoney rounds to 2 decimal places.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// HumanDuration renders a duration as H:MM:SS without fractional seconds,
// for gate-facing messages.
func HumanDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
