package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Run("naive timestamp is taken as UTC", func(t *testing.T) {
		ts, err := ParseTimestamp("2026-09-01T10:30:00")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC), ts)
	})

	t.Run("zone-aware timestamp is converted to UTC", func(t *testing.T) {
		ts, err := ParseTimestamp("2026-09-01T12:30:00+02:00")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC), ts)
	})

	t.Run("minutes-only precision", func(t *testing.T) {
		ts, err := ParseTimestamp("2026-09-01T10:30")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC), ts)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		for _, input := range []string{"", "not-a-time", "2026-13-45T99:99:99", "01/09/2026"} {
			_, err := ParseTimestamp(input)
			assert.ErrorIs(t, err, ErrInvalidTimestamp, "input %q", input)
		}
	})
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-09-01T10:30:00", FormatTimestamp(ts))
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"identical intervals", at(0), at(2), at(0), at(2), true},
		{"partial overlap", at(0), at(2), at(1), at(3), true},
		{"contained interval", at(0), at(4), at(1), at(2), true},
		{"touching end to start", at(0), at(2), at(2), at(4), false},
		{"touching start to end", at(2), at(4), at(0), at(2), false},
		{"disjoint", at(0), at(1), at(3), at(4), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
			// Overlap is symmetric.
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd))
		})
	}
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 5.0, RoundMoney(2.5*2.0))
	assert.Equal(t, 3.33, RoundMoney(3.3333))
	assert.Equal(t, 3.34, RoundMoney(3.335))
	assert.Equal(t, 0.0, RoundMoney(0))
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "0:05:30", HumanDuration(5*time.Minute+30*time.Second))
	assert.Equal(t, "2:00:00", HumanDuration(2*time.Hour))
	assert.Equal(t, "25:01:02", HumanDuration(25*time.Hour+time.Minute+2*time.Second))
	assert.Equal(t, "0:00:00", HumanDuration(-time.Minute))
}
