package models

// BookingStatus is a closed enum. Transition legality lives here so callers
// cannot drive a booking backwards through its lifecycle.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingInUse     BookingStatus = "in_use"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingInUse, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving to next is a legal one-directional
// lifecycle step: pending -> confirmed -> in_use -> completed, with
// pending/confirmed -> cancelled as abort paths.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingInUse || next == BookingCancelled
	case BookingInUse:
		return next == BookingCompleted
	}
	return false
}

// PaymentStatus is a closed enum. "processing" doubles as a mutual-exclusion
// flag against concurrent reconciliation of the same reference.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentProcessing, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentPending:
		return next == PaymentProcessing
	case PaymentProcessing:
		// pending re-arms a retry after a transport failure.
		return next == PaymentCompleted || next == PaymentFailed || next == PaymentPending
	}
	return false
}
