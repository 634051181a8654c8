package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"parkgate/internal/credential"
	"parkgate/internal/domain"
	"parkgate/internal/events"
	"parkgate/internal/metrics"
	"parkgate/internal/models"
	"parkgate/internal/paystack"
	"parkgate/internal/timeutil"

	"github.com/rs/zerolog"
)

// PaymentService initiates charges against the remote gateway and reconciles
// their outcomes exactly once, attaching the gate credential on success.
type PaymentService struct {
	store       domain.Store
	bookings    *BookingService
	gateway     domain.PaymentGateway
	renderer    domain.ArtifactRenderer
	eventBus    domain.EventPublisher
	callbackURL string
	logger      *zerolog.Logger
	now         func() time.Time
}

func NewPaymentService(st domain.Store, bookings *BookingService, gateway domain.PaymentGateway,
	renderer domain.ArtifactRenderer, eventBus domain.EventPublisher, callbackURL string, logger *zerolog.Logger) *PaymentService {
	return &PaymentService{
		store:       st,
		bookings:    bookings,
		gateway:     gateway,
		renderer:    renderer,
		eventBus:    eventBus,
		callbackURL: callbackURL,
		logger:      logger,
		now:         time.Now,
	}
}

// InitiateResult carries what the payer needs to complete the charge.
type InitiateResult struct {
	AuthorizationURL string  `json:"authorization_url"`
	Reference        string  `json:"reference"`
	Amount           float64 `json:"amount"`
}

// ReconcileResult is the caller-facing outcome of a reconciliation. A failed
// gateway verdict is a terminal result here, not an error.
type ReconcileResult struct {
	Status           string  `json:"status"`
	Message          string  `json:"message"`
	BookingID        string  `json:"booking_id"`
	BookingReference string  `json:"booking_reference,omitempty"`
	Reference        string  `json:"reference"`
	Amount           float64 `json:"amount,omitempty"`
	CredentialData   string  `json:"credential_data,omitempty"`
	CredentialImage  string  `json:"credential_image,omitempty"`
	FailureReason    string  `json:"failure_reason,omitempty"`
}

// Initiate starts a charge for a pending booking. Each attempt gets a fresh
// reference so retried initiations never collide at the gateway.
func (p *PaymentService) Initiate(ctx context.Context, bookingID, email string) (*InitiateResult, error) {
	booking, err := p.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingPending {
		return nil, ErrBookingNotPending
	}

	now := p.now().UTC()
	reference := fmt.Sprintf("booking_%s_%d", bookingID, now.Unix())
	amountMinor := int64(math.Round(booking.TotalAmount * 100))

	initResp, err := p.gateway.Initialize(ctx, paystack.InitializeRequest{
		Email:       email,
		AmountMinor: amountMinor,
		Reference:   reference,
		CallbackURL: p.callbackURL,
		Metadata: map[string]string{
			"booking_id": bookingID,
			"type":       "parking_booking",
		},
	})
	if err != nil {
		p.logger.Error().Err(err).Str("booking_id", bookingID).Msg("payment initiation failed")
		return nil, fmt.Errorf("%w: %v", ErrPaymentServiceUnavailable, err)
	}

	gatewayRef := initResp.Reference
	if gatewayRef == "" {
		gatewayRef = reference
	}

	payment := &models.Payment{
		Reference:        gatewayRef,
		BookingID:        bookingID,
		Amount:           booking.TotalAmount,
		Status:           models.PaymentPending,
		GatewayReference: initResp.Reference,
		CreatedAt:        now,
	}
	if err := p.store.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to persist payment record: %w", err)
	}

	metrics.IncPayment("initiated")
	p.logger.Info().
		Str("booking_id", bookingID).
		Str("reference", gatewayRef).
		Int64("amount_minor", amountMinor).
		Msg("payment initiated")

	return &InitiateResult{
		AuthorizationURL: initResp.AuthorizationURL,
		Reference:        gatewayRef,
		Amount:           booking.TotalAmount,
	}, nil
}

// Reconcile confirms a previously-initiated payment's final outcome with the
// gateway and applies its effects exactly once. Idempotent: an already
// completed record returns its cached success without touching the gateway.
func (p *PaymentService) Reconcile(ctx context.Context, reference string) (*ReconcileResult, error) {
	payment, err := p.store.GetPayment(ctx, reference)
	if err != nil {
		return nil, mapStoreErr(err, ErrPaymentNotFound)
	}

	switch payment.Status {
	case models.PaymentCompleted:
		return p.cachedSuccess(ctx, payment)
	case models.PaymentFailed:
		return p.failedResult(payment), nil
	case models.PaymentProcessing:
		return nil, ErrReconcileInProgress
	}

	// pending: take the processing lock. Losing the compare-and-set means a
	// concurrent reconciliation got there first.
	swapped, err := p.store.CompareAndSetPaymentStatus(ctx, reference, models.PaymentPending, models.PaymentProcessing)
	if err != nil {
		return nil, mapStoreErr(err, ErrPaymentNotFound)
	}
	if !swapped {
		current, err := p.store.GetPayment(ctx, reference)
		if err != nil {
			return nil, mapStoreErr(err, ErrPaymentNotFound)
		}
		if current.Status == models.PaymentCompleted {
			return p.cachedSuccess(ctx, current)
		}
		if current.Status == models.PaymentFailed {
			return p.failedResult(current), nil
		}
		return nil, ErrReconcileInProgress
	}
	payment.Status = models.PaymentProcessing

	verify, err := p.gateway.Verify(ctx, reference)
	if err != nil {
		// Transport failure: release the lock so a later retry can proceed.
		if _, casErr := p.store.CompareAndSetPaymentStatus(ctx, reference, models.PaymentProcessing, models.PaymentPending); casErr != nil {
			p.logger.Error().Err(casErr).Str("reference", reference).Msg("failed to revert payment to pending")
		}
		p.logger.Error().Err(err).Str("reference", reference).Msg("payment verification failed")
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	if verify.Status != "success" {
		return p.markFailed(ctx, payment, verify.GatewayResponse), nil
	}

	result, err := p.settle(ctx, payment, verify)
	if err != nil {
		// Never leave a processing record behind: one attempt, one terminal
		// state.
		p.markFailed(ctx, payment, err.Error())
		return nil, err
	}
	return result, nil
}

// settle runs the success path: credential issue, booking confirmation,
// payment completion.
func (p *PaymentService) settle(ctx context.Context, payment *models.Payment, verify *paystack.VerifyResponse) (*ReconcileResult, error) {
	booking, err := p.bookings.GetBooking(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}

	payload := credential.Encode(booking.ID, booking.UserID, booking.SlotID)
	png, err := p.renderer.Render(payload, models.CredentialDisplay{
		BookingReference: booking.Reference,
		SlotID:           booking.SlotID,
		SlotLocation:     booking.SlotLocation,
		StartTime:        timeutil.FormatTimestamp(booking.StartTime),
		EndTime:          timeutil.FormatTimestamp(booking.EndTime),
		TotalAmount:      booking.TotalAmount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render credential: %w", err)
	}
	imageURI := credential.ToDataURI(png)

	now := p.now().UTC()
	confirmed, err := p.bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingConfirmed, func(b *models.Booking) {
		b.CredentialData = payload
		b.CredentialImage = imageURI
		b.PaymentRef = payment.Reference
		b.PaidAt = now
	})
	if err != nil {
		return nil, err
	}

	payment.Status = models.PaymentCompleted
	payment.CompletedAt = now
	payment.GatewayResponse = verify.GatewayResponse
	if err := p.store.UpdatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to complete payment record: %w", err)
	}

	metrics.IncPayment("completed")
	_ = p.eventBus.PublishJSON(events.EventPaymentCompleted, events.PaymentEventPayload{
		Reference: payment.Reference,
		BookingID: payment.BookingID,
		Amount:    payment.Amount,
		Status:    string(payment.Status),
	})
	_ = p.eventBus.PublishJSON(events.EventBookingConfirmed, events.BookingEventPayload{
		BookingID: confirmed.ID,
		Reference: confirmed.Reference,
		UserID:    confirmed.UserID,
		SlotID:    confirmed.SlotID,
		Status:    string(confirmed.Status),
		StartTime: confirmed.StartTime,
		EndTime:   confirmed.EndTime,
		Amount:    confirmed.TotalAmount,
	})

	p.logger.Info().
		Str("reference", payment.Reference).
		Str("booking_id", payment.BookingID).
		Msg("payment completed")

	return &ReconcileResult{
		Status:           string(models.PaymentCompleted),
		Message:          "Payment successful",
		BookingID:        confirmed.ID,
		BookingReference: confirmed.Reference,
		Reference:        payment.Reference,
		Amount:           payment.Amount,
		CredentialData:   payload,
		CredentialImage:  imageURI,
	}, nil
}

// cachedSuccess rebuilds the success payload from stored fields. No gateway
// call, no new credential: the stored one is authoritative.
func (p *PaymentService) cachedSuccess(ctx context.Context, payment *models.Payment) (*ReconcileResult, error) {
	result := &ReconcileResult{
		Status:    string(models.PaymentCompleted),
		Message:   "Payment successful",
		BookingID: payment.BookingID,
		Reference: payment.Reference,
		Amount:    payment.Amount,
	}

	booking, err := p.bookings.GetBooking(ctx, payment.BookingID)
	if err == nil {
		result.BookingReference = booking.Reference
		result.CredentialData = booking.CredentialData
		result.CredentialImage = booking.CredentialImage
	}
	return result, nil
}

func (p *PaymentService) failedResult(payment *models.Payment) *ReconcileResult {
	return &ReconcileResult{
		Status:        string(models.PaymentFailed),
		Message:       "Payment was not successful",
		BookingID:     payment.BookingID,
		Reference:     payment.Reference,
		FailureReason: payment.FailureReason,
	}
}

func (p *PaymentService) markFailed(ctx context.Context, payment *models.Payment, reason string) *ReconcileResult {
	payment.Status = models.PaymentFailed
	payment.FailureReason = reason
	if err := p.store.UpdatePayment(ctx, payment); err != nil {
		p.logger.Error().Err(err).Str("reference", payment.Reference).Msg("failed to mark payment failed")
	}

	metrics.IncPayment("failed")
	_ = p.eventBus.PublishJSON(events.EventPaymentFailed, events.PaymentEventPayload{
		Reference: payment.Reference,
		BookingID: payment.BookingID,
		Amount:    payment.Amount,
		Status:    string(payment.Status),
		Reason:    reason,
	})

	p.logger.Warn().Str("reference", payment.Reference).Str("reason", reason).Msg("payment failed")
	return p.failedResult(payment)
}

// Status reports the stored payment record. With autoVerify, a still-pending
// record is reconciled first; a reconciliation error falls back to the stored
// view rather than failing the lookup.
func (p *PaymentService) Status(ctx context.Context, reference string, autoVerify bool) (*models.Payment, error) {
	payment, err := p.store.GetPayment(ctx, reference)
	if err != nil {
		return nil, mapStoreErr(err, ErrPaymentNotFound)
	}

	if autoVerify && payment.Status == models.PaymentPending {
		if _, err := p.Reconcile(ctx, reference); err != nil {
			p.logger.Warn().Err(err).Str("reference", reference).Msg("auto verification failed")
		}
		if refreshed, err := p.store.GetPayment(ctx, reference); err == nil {
			payment = refreshed
		}
	}
	return payment, nil
}

// RegenerateArtifact re-renders the credential image from stored booking
// fields. The payload is never re-derived from scratch, so a rendering
// failure at issue time is always recoverable here.
func (p *PaymentService) RegenerateArtifact(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := p.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.CredentialData == "" {
		return nil, ErrNoCredential
	}

	png, err := p.renderer.Render(booking.CredentialData, models.CredentialDisplay{
		BookingReference: booking.Reference,
		SlotID:           booking.SlotID,
		SlotLocation:     booking.SlotLocation,
		StartTime:        timeutil.FormatTimestamp(booking.StartTime),
		EndTime:          timeutil.FormatTimestamp(booking.EndTime),
		TotalAmount:      booking.TotalAmount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render credential: %w", err)
	}

	booking.CredentialImage = credential.ToDataURI(png)
	if err := p.store.UpdateBooking(ctx, booking); err != nil {
		return nil, mapStoreErr(err, ErrBookingNotFound)
	}
	return booking, nil
}
