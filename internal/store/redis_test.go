package store

import (
	"context"
	"testing"
	"time"

	"parkgate/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func testSlot(id string) *models.Slot {
	now := time.Now().UTC()
	return &models.Slot{
		ID:          id,
		Location:    "Level 1 - A1",
		RatePerHour: 2.0,
		IsActive:    true,
		Occupancy:   models.OccupancyEmpty,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func testBooking(id, userID, slotID string) *models.Booking {
	now := time.Now().UTC()
	return &models.Booking{
		ID:        id,
		UserID:    userID,
		SlotID:    slotID,
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(3 * time.Hour),
		Status:    models.BookingPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRedisStoreSlots(t *testing.T) {
	st := newTestRedisStore(t)
	ctx := context.Background()

	_, err := st.GetSlot(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.CreateSlot(ctx, testSlot("slot1")))
	assert.ErrorIs(t, st.CreateSlot(ctx, testSlot("slot1")), ErrAlreadyExists)
	require.NoError(t, st.CreateSlot(ctx, testSlot("slot2")))

	slot, err := st.GetSlot(ctx, "slot1")
	require.NoError(t, err)
	assert.Equal(t, "Level 1 - A1", slot.Location)

	slots, err := st.ListSlots(ctx)
	require.NoError(t, err)
	assert.Len(t, slots, 2)

	slot.IsActive = false
	require.NoError(t, st.UpdateSlot(ctx, slot))
	updated, err := st.GetSlot(ctx, "slot1")
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	assert.ErrorIs(t, st.UpdateSlot(ctx, testSlot("ghost")), ErrNotFound)
}

func TestRedisStoreBookings(t *testing.T) {
	st := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateBooking(ctx, testBooking("b000000001", "user1", "slot1")))
	require.NoError(t, st.CreateBooking(ctx, testBooking("b000000002", "user1", "slot2")))
	require.NoError(t, st.CreateBooking(ctx, testBooking("b000000003", "user2", "slot1")))

	assert.ErrorIs(t, st.CreateBooking(ctx, testBooking("b000000001", "user1", "slot1")), ErrAlreadyExists)

	all, err := st.ListBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := st.ListBookingsByUser(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	none, err := st.ListBookingsByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	booking, err := st.GetBooking(ctx, "b000000001")
	require.NoError(t, err)
	booking.Status = models.BookingConfirmed
	require.NoError(t, st.UpdateBooking(ctx, booking))

	reread, err := st.GetBooking(ctx, "b000000001")
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, reread.Status)
}

func TestRedisStoreWithSlotLock(t *testing.T) {
	st := newTestRedisStore(t)
	ctx := context.Background()

	called := false
	err := st.WithSlotLock(ctx, "slot1", func(ctx context.Context) error {
		called = true
		// A different slot can be locked while this one is held.
		return st.WithSlotLock(ctx, "slot2", func(ctx context.Context) error { return nil })
	})
	require.NoError(t, err)
	assert.True(t, called)

	// The lock is released after fn returns.
	require.NoError(t, st.WithSlotLock(ctx, "slot1", func(ctx context.Context) error { return nil }))
}

func TestRedisStoreCompareAndSetPaymentStatus(t *testing.T) {
	st := newTestRedisStore(t)
	ctx := context.Background()

	payment := &models.Payment{
		Reference: "ref1",
		BookingID: "b000000001",
		Amount:    5.0,
		Status:    models.PaymentPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.CreatePayment(ctx, payment))

	swapped, err := st.CompareAndSetPaymentStatus(ctx, "ref1", models.PaymentPending, models.PaymentProcessing)
	require.NoError(t, err)
	assert.True(t, swapped)

	// The record was not pending anymore, so a second identical CAS loses.
	swapped, err = st.CompareAndSetPaymentStatus(ctx, "ref1", models.PaymentPending, models.PaymentProcessing)
	require.NoError(t, err)
	assert.False(t, swapped)

	current, err := st.GetPayment(ctx, "ref1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentProcessing, current.Status)

	_, err = st.CompareAndSetPaymentStatus(ctx, "ghost", models.PaymentPending, models.PaymentProcessing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStorePayments(t *testing.T) {
	st := newTestRedisStore(t)
	ctx := context.Background()

	payment := &models.Payment{
		Reference: "ref1",
		BookingID: "b000000001",
		Amount:    5.0,
		Status:    models.PaymentPending,
	}
	require.NoError(t, st.CreatePayment(ctx, payment))
	assert.ErrorIs(t, st.CreatePayment(ctx, payment), ErrAlreadyExists)

	payment.Status = models.PaymentCompleted
	require.NoError(t, st.UpdatePayment(ctx, payment))

	reread, err := st.GetPayment(ctx, "ref1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, reread.Status)

	assert.ErrorIs(t, st.UpdatePayment(ctx, &models.Payment{Reference: "ghost"}), ErrNotFound)
}
