package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		allowed  bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCancelled, true},
		{BookingPending, BookingInUse, false},
		{BookingPending, BookingCompleted, false},
		{BookingConfirmed, BookingInUse, true},
		{BookingConfirmed, BookingCancelled, true},
		{BookingConfirmed, BookingCompleted, false},
		{BookingConfirmed, BookingPending, false},
		{BookingInUse, BookingCompleted, true},
		{BookingInUse, BookingCancelled, false},
		{BookingInUse, BookingConfirmed, false},
		{BookingCompleted, BookingInUse, false},
		{BookingCompleted, BookingCancelled, false},
		{BookingCancelled, BookingConfirmed, false},
		{BookingCancelled, BookingPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to PaymentStatus
		allowed  bool
	}{
		{PaymentPending, PaymentProcessing, true},
		{PaymentPending, PaymentCompleted, false},
		{PaymentPending, PaymentFailed, false},
		{PaymentProcessing, PaymentCompleted, true},
		{PaymentProcessing, PaymentFailed, true},
		{PaymentProcessing, PaymentPending, true},
		{PaymentCompleted, PaymentProcessing, false},
		{PaymentCompleted, PaymentFailed, false},
		{PaymentFailed, PaymentProcessing, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, BookingPending.Valid())
	assert.True(t, BookingCompleted.Valid())
	assert.False(t, BookingStatus("deleted").Valid())
	assert.False(t, BookingStatus("").Valid())

	assert.True(t, OccupancyEmpty.Valid())
	assert.True(t, OccupancyOccupied.Valid())
	assert.False(t, Occupancy("reserved").Valid())
}

func TestNewBookingID(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	created := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	id := NewBookingID("user1", "slot1", start, created)
	assert.Len(t, id, BookingIDLength)
	assert.Equal(t, strings.ToLower(id), id)

	// Deterministic for identical inputs.
	assert.Equal(t, id, NewBookingID("user1", "slot1", start, created))

	// Any changed input changes the ID.
	assert.NotEqual(t, id, NewBookingID("user2", "slot1", start, created))
	assert.NotEqual(t, id, NewBookingID("user1", "slot2", start, created))
	assert.NotEqual(t, id, NewBookingID("user1", "slot1", start.Add(time.Hour), created))
	assert.NotEqual(t, id, NewBookingID("user1", "slot1", start, created.Add(time.Nanosecond)))
}

func TestNewBookingReference(t *testing.T) {
	ref := NewBookingReference("a1b2c3d4e5")
	assert.Equal(t, "PKA1B2C3D4", ref)
	assert.True(t, strings.HasPrefix(ref, "PK"))
	assert.Len(t, ref, 10)
}
