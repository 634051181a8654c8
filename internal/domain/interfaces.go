package domain

import (
	"context"

	"parkgate/internal/models"
	"parkgate/internal/paystack"
)

// Store is the keyed document store the engine runs against. Implementations
// guarantee nothing stronger than read-then-write on a single record, except
// where an operation is explicitly conditional (WithSlotLock,
// CompareAndSetPaymentStatus).
type Store interface {
	GetSlot(ctx context.Context, id string) (*models.Slot, error)
	ListSlots(ctx context.Context) ([]*models.Slot, error)
	CreateSlot(ctx context.Context, slot *models.Slot) error
	UpdateSlot(ctx context.Context, slot *models.Slot) error

	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
	UpdateBooking(ctx context.Context, booking *models.Booking) error

	// WithSlotLock runs fn while holding an exclusive per-slot lock, closing
	// the check-then-act window between an availability re-check and the
	// booking write.
	WithSlotLock(ctx context.Context, slotID string, fn func(ctx context.Context) error) error

	GetPayment(ctx context.Context, reference string) (*models.Payment, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	UpdatePayment(ctx context.Context, payment *models.Payment) error

	// CompareAndSetPaymentStatus atomically moves a payment from one status
	// to another. Returns false without error when the record was not in the
	// expected status.
	CompareAndSetPaymentStatus(ctx context.Context, reference string, from, to models.PaymentStatus) (bool, error)
}

// PaymentGateway is the remote charge service.
type PaymentGateway interface {
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*paystack.VerifyResponse, error)
}

// ArtifactRenderer turns a credential payload plus display metadata into a
// scannable image. Rendering is pure: a failure never corrupts the payload,
// which stays independently re-renderable from stored booking fields.
type ArtifactRenderer interface {
	Render(payload string, meta models.CredentialDisplay) ([]byte, error)
}

// EventPublisher notifies in-process subscribers of domain events.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
