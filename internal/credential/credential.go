// Package credential encodes the compact payload scanned at the gate and
// renders it as a displayable QR artifact.
package credential

import (
	"errors"
	"fmt"
	"strings"

	"parkgate/internal/models"
)

const payloadPrefix = "PARKING"

var ErrMalformed = errors.New("malformed credential payload")

// Decoded holds the three identifying fields of a gate credential.
type Decoded struct {
	BookingID string
	UserID    string
	SlotID    string
}

// Encode builds the four-field colon-delimited payload:
// PARKING:<booking_id>:<user_id>:<slot_id>.
func Encode(bookingID, userID, slotID string) string {
	return fmt.Sprintf("%s:%s:%s:%s", payloadPrefix, bookingID, userID, slotID)
}

// Decode requires exactly 4 colon-separated fields with the literal PARKING
// first, and a fixed-length booking ID. Anything else is malformed.
func Decode(payload string) (*Decoded, error) {
	parts := strings.Split(payload, ":")
	if len(parts) != 4 || parts[0] != payloadPrefix {
		return nil, ErrMalformed
	}
	if len(parts[1]) != models.BookingIDLength {
		return nil, ErrMalformed
	}
	return &Decoded{
		BookingID: parts[1],
		UserID:    parts[2],
		SlotID:    parts[3],
	}, nil
}
