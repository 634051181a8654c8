package service

import "errors"

// Validation errors: surfaced as 400-class, never retried automatically.
var (
	ErrInvalidInterval = errors.New("invalid time interval")
	ErrInvalidDuration = errors.New("booking duration must be between 30 minutes and 24 hours")
	ErrInvalidStatus   = errors.New("invalid booking status")
	ErrInvalidRate     = errors.New("rate per hour must be positive")
	ErrLocationEmpty   = errors.New("location is required")
)

// Not-found errors: 404-class.
var (
	ErrSlotNotFound    = errors.New("parking slot not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrPaymentNotFound = errors.New("payment record not found")
)

// State-conflict errors: 409-class, caller must re-query before retrying.
var (
	ErrSlotInactive         = errors.New("parking slot is not active")
	ErrSlotUnavailable      = errors.New("slot is not available for the selected time")
	ErrIllegalTransition    = errors.New("illegal booking status transition")
	ErrBookingNotPending    = errors.New("booking is not pending payment")
	ErrReconcileInProgress  = errors.New("payment reconciliation already in progress")
	ErrBookingNotCancelable = errors.New("booking can no longer be cancelled")
	ErrNoCredential         = errors.New("booking has no issued credential")
)

// Gate denials: always rendered as a GateResult shape, never raw error text.
var (
	ErrCredentialMismatch  = errors.New("credential does not match booking")
	ErrTooEarly            = errors.New("entry time not yet reached")
	ErrEntryWindowExpired  = errors.New("entry window has passed")
	ErrAlreadyCompleted    = errors.New("booking already completed")
	ErrBookingCancelled    = errors.New("booking has been cancelled")
	ErrPaymentStillPending = errors.New("booking payment is still pending")
	ErrInvalidBookingState = errors.New("booking is in an invalid state")
)

// Upstream errors: 5xx-class and safely retriable.
var (
	ErrPaymentServiceUnavailable = errors.New("payment service unavailable")
	ErrVerificationFailed        = errors.New("payment verification failed")
)
