package service

import (
	"context"
	"fmt"
	"time"

	"parkgate/internal/credential"
	"parkgate/internal/domain"
	"parkgate/internal/events"
	"parkgate/internal/metrics"
	"parkgate/internal/models"
	"parkgate/internal/timeutil"

	"github.com/rs/zerolog"
)

// GateService decodes scanned credentials and enforces the entry/exit state
// machine at the barrier. All expiry and overtime checks happen on demand at
// scan time against wall-clock now; nothing is scheduled.
type GateService struct {
	store           domain.Store
	bookings        *BookingService
	eventBus        domain.EventPublisher
	gracePeriod     time.Duration
	lateEntryCutoff time.Duration
	defaultRate     float64
	logger          *zerolog.Logger
	now             func() time.Time
}

func NewGateService(st domain.Store, bookings *BookingService, eventBus domain.EventPublisher,
	gracePeriod, lateEntryCutoff time.Duration, defaultRate float64, logger *zerolog.Logger) *GateService {
	if gracePeriod <= 0 {
		gracePeriod = models.DefaultGracePeriod
	}
	if lateEntryCutoff <= 0 {
		lateEntryCutoff = models.DefaultLateEntryCutoff
	}
	if defaultRate <= 0 {
		defaultRate = models.DefaultRatePerHour
	}
	return &GateService{
		store:           st,
		bookings:        bookings,
		eventBus:        eventBus,
		gracePeriod:     gracePeriod,
		lateEntryCutoff: lateEntryCutoff,
		defaultRate:     defaultRate,
		logger:          logger,
		now:             time.Now,
	}
}

// resolve decodes a payload and loads the booking it names, rejecting any
// credential whose user or slot does not match the stored record. This blocks
// cross-slot credential replay.
func (g *GateService) resolve(ctx context.Context, payload string) (*models.Booking, error) {
	decoded, err := credential.Decode(payload)
	if err != nil {
		return nil, err
	}

	booking, err := g.bookings.GetBooking(ctx, decoded.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != decoded.UserID || booking.SlotID != decoded.SlotID {
		return nil, ErrCredentialMismatch
	}
	return booking, nil
}

// Validate runs one gate scan. Expected denials come back as sentinel errors;
// an overtime-due scan is a non-error result with the barrier kept shut.
func (g *GateService) Validate(ctx context.Context, payload string) (*models.GateResult, error) {
	booking, err := g.resolve(ctx, payload)
	if err != nil {
		metrics.IncGateScan("denied")
		return nil, err
	}

	now := g.now().UTC()

	switch booking.Status {
	case models.BookingConfirmed:
		return g.validateEntry(ctx, booking, now)
	case models.BookingInUse:
		return g.validateExit(ctx, booking, now)
	case models.BookingCompleted:
		metrics.IncGateScan("denied")
		return nil, ErrAlreadyCompleted
	case models.BookingCancelled:
		metrics.IncGateScan("denied")
		return nil, ErrBookingCancelled
	case models.BookingPending:
		metrics.IncGateScan("denied")
		return nil, ErrPaymentStillPending
	default:
		metrics.IncGateScan("denied")
		return nil, fmt.Errorf("%w: %s", ErrInvalidBookingState, booking.Status)
	}
}

func (g *GateService) validateEntry(ctx context.Context, booking *models.Booking, now time.Time) (*models.GateResult, error) {
	if now.Before(booking.StartTime) {
		metrics.IncGateScan("denied")
		return nil, fmt.Errorf("%w: please wait %s",
			ErrTooEarly, timeutil.HumanDuration(booking.StartTime.Sub(now)))
	}
	if now.After(booking.StartTime.Add(g.lateEntryCutoff)) {
		metrics.IncGateScan("denied")
		return nil, ErrEntryWindowExpired
	}

	updated, err := g.bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingInUse, func(b *models.Booking) {
		b.ActualEntryTime = now
		b.ScanCount = 1
	})
	if err != nil {
		return nil, err
	}

	metrics.IncGateScan("entry")
	_ = g.eventBus.PublishJSON(events.EventGateEntry, events.GateEventPayload{
		BookingID:   updated.ID,
		SlotID:      updated.SlotID,
		Action:      models.GateActionEntry,
		OpenBarrier: true,
		ScannedAt:   now,
	})

	g.logger.Info().Str("booking_id", updated.ID).Msg("entry granted")
	return &models.GateResult{
		Status:       models.GateAllowed,
		Message:      fmt.Sprintf("Entry granted for booking %s. Welcome!", updated.ID),
		OpenBarrier:  true,
		Action:       models.GateActionEntry,
		BookingID:    updated.ID,
		SlotLocation: updated.SlotLocation,
	}, nil
}

func (g *GateService) validateExit(ctx context.Context, booking *models.Booking, now time.Time) (*models.GateResult, error) {
	if booking.ScanCount >= 2 {
		metrics.IncGateScan("denied")
		return nil, ErrAlreadyCompleted
	}

	graceDeadline := booking.EndTime.Add(g.gracePeriod)
	if now.After(graceDeadline) && !booking.OvertimePaid {
		overtime := now.Sub(booking.EndTime)
		amount := timeutil.RoundMoney(overtime.Hours() * g.overtimeRate(ctx, booking.SlotID))

		metrics.IncGateScan("overtime_due")
		_ = g.eventBus.PublishJSON(events.EventOvertimeDetected, events.GateEventPayload{
			BookingID:      booking.ID,
			SlotID:         booking.SlotID,
			Action:         models.GateActionExit,
			OpenBarrier:    false,
			OvertimeAmount: amount,
			ScannedAt:      now,
		})

		g.logger.Info().
			Str("booking_id", booking.ID).
			Float64("overtime_amount", amount).
			Msg("exit denied, overtime due")

		// No state transition: the booking stays in_use until overtime is
		// settled and the holder scans again.
		return &models.GateResult{
			Status:           models.GateOvertimeDue,
			Message:          fmt.Sprintf("Overtime payment required: %.2f", amount),
			OpenBarrier:      false,
			BookingID:        booking.ID,
			Overtime:         true,
			OvertimeAmount:   amount,
			OvertimeDuration: timeutil.HumanDuration(overtime),
		}, nil
	}

	updated, err := g.bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingCompleted, func(b *models.Booking) {
		b.ActualExitTime = now
		b.ScanCount = 2
	})
	if err != nil {
		return nil, err
	}

	entry := updated.ActualEntryTime
	if entry.IsZero() {
		entry = updated.StartTime
	}

	metrics.IncGateScan("exit")
	_ = g.eventBus.PublishJSON(events.EventGateExit, events.GateEventPayload{
		BookingID:   updated.ID,
		SlotID:      updated.SlotID,
		Action:      models.GateActionExit,
		OpenBarrier: true,
		ScannedAt:   now,
	})

	g.logger.Info().Str("booking_id", updated.ID).Msg("exit granted")
	return &models.GateResult{
		Status:        models.GateAllowed,
		Message:       fmt.Sprintf("Exit granted for booking %s. Thank you!", updated.ID),
		OpenBarrier:   true,
		Action:        models.GateActionExit,
		BookingID:     updated.ID,
		TotalDuration: timeutil.HumanDuration(now.Sub(entry)),
	}, nil
}

// overtimeRate uses the slot's configured rate; the global default applies
// only when the slot record cannot be read at scan time.
func (g *GateService) overtimeRate(ctx context.Context, slotID string) float64 {
	slot, err := g.store.GetSlot(ctx, slotID)
	if err != nil || slot.RatePerHour <= 0 {
		g.logger.Warn().Str("slot_id", slotID).Msg("slot rate unavailable, using default rate for overtime")
		return g.defaultRate
	}
	return slot.RatePerHour
}

// Details returns the display-only booking summary behind a credential, with
// no state transition. Used by attendants to inspect a scanned code.
func (g *GateService) Details(ctx context.Context, payload string) (map[string]interface{}, error) {
	booking, err := g.resolve(ctx, payload)
	if err != nil {
		return nil, err
	}

	location := booking.SlotLocation
	if slot, err := g.store.GetSlot(ctx, booking.SlotID); err == nil {
		location = slot.Location
	}

	return map[string]interface{}{
		"booking_id":        booking.ID,
		"booking_reference": booking.Reference,
		"user_id":           booking.UserID,
		"slot_id":           booking.SlotID,
		"slot_location":     location,
		"start_time":        timeutil.FormatTimestamp(booking.StartTime),
		"end_time":          timeutil.FormatTimestamp(booking.EndTime),
		"status":            string(booking.Status),
		"total_amount":      booking.TotalAmount,
	}, nil
}
