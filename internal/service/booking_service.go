package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"parkgate/internal/domain"
	"parkgate/internal/events"
	"parkgate/internal/metrics"
	"parkgate/internal/models"
	"parkgate/internal/store"
	"parkgate/internal/timeutil"

	"github.com/rs/zerolog"
)

// BookingService computes slot availability under overlapping-interval claims
// and drives bookings through their lifecycle.
type BookingService struct {
	store    domain.Store
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingService(st domain.Store, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		store:    st,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

// blocksSlot reports whether a booking claims its slot against new intervals.
// Only confirmed and in_use bookings hold the slot.
func blocksSlot(status models.BookingStatus) bool {
	return status == models.BookingConfirmed || status == models.BookingInUse
}

// GetAvailability returns all active slots free over [start, end). Duration
// bounds are a booking-time concern, not a query-time one; only ordering and
// not-in-the-past are enforced here.
func (s *BookingService) GetAvailability(ctx context.Context, start, end time.Time) ([]models.AvailableSlot, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start time must be before end time", ErrInvalidInterval)
	}
	if start.Before(s.now().UTC()) {
		return nil, fmt.Errorf("%w: start time cannot be in the past", ErrInvalidInterval)
	}

	slots, err := s.store.ListSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	bookings, err := s.store.ListBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	available := make([]models.AvailableSlot, 0, len(slots))
	for _, slot := range slots {
		if !slot.IsActive {
			continue
		}

		free := true
		for _, booking := range bookings {
			if booking.SlotID != slot.ID || !blocksSlot(booking.Status) {
				continue
			}
			if timeutil.Overlaps(start, end, booking.StartTime, booking.EndTime) {
				free = false
				break
			}
		}

		if free {
			available = append(available, models.AvailableSlot{
				SlotID:      slot.ID,
				Location:    slot.Location,
				Description: slot.Description,
				RatePerHour: slot.RatePerHour,
				// Sensor state, independent of booking state: a reserved
				// slot can still be physically empty right now.
				OccupancyStatus: slot.Occupancy,
			})
		}
	}

	sort.Slice(available, func(i, j int) bool { return available[i].SlotID < available[j].SlotID })
	return available, nil
}

// slotFreeFor re-checks one slot against current bookings. Runs under the
// per-slot lock during creation.
func (s *BookingService) slotFreeFor(ctx context.Context, slotID string, start, end time.Time) (bool, error) {
	bookings, err := s.store.ListBookings(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list bookings: %w", err)
	}
	for _, booking := range bookings {
		if booking.SlotID != slotID || !blocksSlot(booking.Status) {
			continue
		}
		if timeutil.Overlaps(start, end, booking.StartTime, booking.EndTime) {
			return false, nil
		}
	}
	return true, nil
}

// CreateBooking validates duration bounds and slot state, re-checks
// availability under the slot lock and persists a pending booking.
func (s *BookingService) CreateBooking(ctx context.Context, userID, slotID string, start, end time.Time) (*models.Booking, error) {
	duration := end.Sub(start)
	if duration < models.MinBookingDuration || duration > models.MaxBookingDuration {
		return nil, ErrInvalidDuration
	}
	if start.Before(s.now().UTC()) {
		return nil, fmt.Errorf("%w: start time cannot be in the past", ErrInvalidInterval)
	}

	slot, err := s.store.GetSlot(ctx, slotID)
	if err != nil {
		return nil, mapStoreErr(err, ErrSlotNotFound)
	}
	if !slot.IsActive {
		return nil, ErrSlotInactive
	}

	rate := slot.RatePerHour
	if rate <= 0 {
		rate = models.DefaultRatePerHour
	}
	durationHours := duration.Hours()
	now := s.now().UTC()

	booking := &models.Booking{
		UserID:        userID,
		SlotID:        slotID,
		SlotLocation:  slot.Location,
		StartTime:     start,
		EndTime:       end,
		Status:        models.BookingPending,
		RatePerHour:   rate,
		TotalAmount:   timeutil.RoundMoney(durationHours * rate),
		DurationHours: timeutil.RoundMoney(durationHours),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	booking.ID = models.NewBookingID(userID, slotID, start, now)
	booking.Reference = models.NewBookingReference(booking.ID)

	// Re-check and write under the per-slot lock so two concurrent claims on
	// overlapping intervals cannot both pass the availability check.
	err = s.store.WithSlotLock(ctx, slotID, func(ctx context.Context) error {
		free, err := s.slotFreeFor(ctx, slotID, start, end)
		if err != nil {
			return err
		}
		if !free {
			return ErrSlotUnavailable
		}
		return s.store.CreateBooking(ctx, booking)
	})
	if err != nil {
		if errors.Is(err, store.ErrSlotLocked) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}

	metrics.IncBookingCreated()
	_ = s.eventBus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{
		BookingID: booking.ID,
		Reference: booking.Reference,
		UserID:    booking.UserID,
		SlotID:    booking.SlotID,
		Status:    string(booking.Status),
		StartTime: booking.StartTime,
		EndTime:   booking.EndTime,
		Amount:    booking.TotalAmount,
	})

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("user_id", userID).
		Str("slot_id", slotID).
		Float64("total_amount", booking.TotalAmount).
		Msg("booking created")

	return booking, nil
}

// ListAllBookings returns every booking regardless of owner or status. Used
// for operator reporting.
func (s *BookingService) ListAllBookings(ctx context.Context) ([]*models.Booking, error) {
	bookings, err := s.store.ListBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, ErrBookingNotFound)
	}
	return booking, nil
}

// GetUserBookings lists a user's bookings enriched with slot location, newest
// first.
func (s *BookingService) GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	bookings, err := s.store.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user bookings: %w", err)
	}

	for _, booking := range bookings {
		if booking.SlotLocation != "" {
			continue
		}
		slot, err := s.store.GetSlot(ctx, booking.SlotID)
		if err == nil {
			booking.SlotLocation = slot.Location
		}
	}

	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings, nil
}

// UpdateBookingStatus moves a booking to a new status, applying any extra
// field mutations in the same write. The target must be a defined status and
// the transition legal; lifecycle steps are one-directional.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus, mutate func(*models.Booking)) (*models.Booking, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, booking.Status, status)
	}

	booking.Status = status
	booking.UpdatedAt = s.now().UTC()
	if mutate != nil {
		mutate(booking)
	}

	if err := s.store.UpdateBooking(ctx, booking); err != nil {
		return nil, mapStoreErr(err, ErrBookingNotFound)
	}

	s.logger.Info().Str("booking_id", bookingID).Str("status", string(status)).Msg("booking status updated")
	return booking, nil
}

// CancelBooking aborts a booking on the pending->cancelled or
// confirmed->cancelled path.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingPending && booking.Status != models.BookingConfirmed {
		return nil, ErrBookingNotCancelable
	}

	cancelled, err := s.UpdateBookingStatus(ctx, bookingID, models.BookingCancelled, nil)
	if err != nil {
		return nil, err
	}

	_ = s.eventBus.PublishJSON(events.EventBookingCancelled, events.BookingEventPayload{
		BookingID: cancelled.ID,
		UserID:    cancelled.UserID,
		SlotID:    cancelled.SlotID,
		Status:    string(cancelled.Status),
		StartTime: cancelled.StartTime,
		EndTime:   cancelled.EndTime,
	})
	return cancelled, nil
}
