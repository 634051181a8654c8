package export

import (
	"testing"
	"time"

	"parkgate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingsReport(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	bookings := []*models.Booking{
		{
			ID:            "abcdef0123",
			Reference:     "PKABCDEF01",
			UserID:        "user1",
			SlotID:        "slot1",
			StartTime:     start,
			EndTime:       start.Add(2 * time.Hour),
			Status:        models.BookingCompleted,
			DurationHours: 2,
			TotalAmount:   4.0,
		},
		{
			ID:            "0123abcdef",
			Reference:     "PK0123ABCD",
			UserID:        "user2",
			SlotID:        "slot2",
			StartTime:     start,
			EndTime:       start.Add(time.Hour),
			Status:        models.BookingConfirmed,
			DurationHours: 1,
			TotalAmount:   2.5,
		},
	}
	slots := []*models.Slot{
		{ID: "slot1", Location: "Level 1 - A1"},
		{ID: "slot2", Location: "Level 1 - A2"},
	}

	f, err := BookingsReport(bookings, slots)
	require.NoError(t, err)
	defer f.Close()

	ref, err := f.GetCellValue("Bookings", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Reference", ref)

	firstRef, err := f.GetCellValue("Bookings", "A2")
	require.NoError(t, err)
	assert.Equal(t, "PKABCDEF01", firstRef)

	location, err := f.GetCellValue("Bookings", "E2")
	require.NoError(t, err)
	assert.Equal(t, "Level 1 - A1", location)

	startCell, err := f.GetCellValue("Bookings", "F2")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01T10:00:00", startCell)

	label, err := f.GetCellValue("Bookings", "I4")
	require.NoError(t, err)
	assert.Equal(t, "Total", label)

	total, err := f.GetCellValue("Bookings", "J4")
	require.NoError(t, err)
	assert.Equal(t, "6.5", total)
}

func TestBookingsReportEmpty(t *testing.T) {
	f, err := BookingsReport(nil, nil)
	require.NoError(t, err)
	defer f.Close()

	label, err := f.GetCellValue("Bookings", "I2")
	require.NoError(t, err)
	assert.Equal(t, "Total", label)
}
