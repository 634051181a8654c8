package models

import "time"

// Payment records one charge attempt against the gateway. Created on
// initiation, mutated only by reconciliation, never deleted.
type Payment struct {
	Reference        string        `json:"reference"`
	BookingID        string        `json:"booking_id"`
	Amount           float64       `json:"amount"`
	Status           PaymentStatus `json:"status"`
	GatewayReference string        `json:"gateway_reference,omitempty"`
	GatewayResponse  string        `json:"gateway_response,omitempty"`
	FailureReason    string        `json:"failure_reason,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	CompletedAt      time.Time     `json:"completed_at,omitempty"`
}
