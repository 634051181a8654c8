package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// BookingIDLength is the fixed length of a booking ID. Gate credentials carry
// the ID verbatim, so decoding validates against this.
const BookingIDLength = 10

type Booking struct {
	ID              string        `json:"booking_id"`
	Reference       string        `json:"booking_reference"`
	UserID          string        `json:"user_id"`
	SlotID          string        `json:"slot_id"`
	SlotLocation    string        `json:"slot_location,omitempty"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	Status          BookingStatus `json:"status"`
	RatePerHour     float64       `json:"rate_per_hour"`
	TotalAmount     float64       `json:"total_amount"`
	DurationHours   float64       `json:"duration_hours"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	ActualEntryTime time.Time     `json:"actual_entry_time,omitempty"`
	ActualExitTime  time.Time     `json:"actual_exit_time,omitempty"`
	ScanCount       int           `json:"scan_count"`
	OvertimePaid    bool          `json:"overtime_paid"`
	CredentialData  string        `json:"credential_data,omitempty"`
	CredentialImage string        `json:"credential_image,omitempty"`
	PaymentRef      string        `json:"payment_reference,omitempty"`
	PaidAt          time.Time     `json:"paid_at,omitempty"`
}

// NewBookingID derives a deterministic fixed-length ID from the booking
// identity plus the creation instant, so retried creations do not collide.
func NewBookingID(userID, slotID string, start, createdAt time.Time) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s%s%s%s",
		userID, slotID, start.Format(time.RFC3339), createdAt.Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])[:BookingIDLength]
}

// NewBookingReference renders the human-facing reference for an ID.
func NewBookingReference(bookingID string) string {
	ref := bookingID
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return "PK" + strings.ToUpper(ref)
}
