package models

// Gate scan outcomes.
const (
	GateAllowed     = "allowed"
	GateOvertimeDue = "overtime_due"
	GateDenied      = "denied"
)

// Gate actions on an allowed scan.
const (
	GateActionEntry = "entry"
	GateActionExit  = "exit"
)

// GateResult is the only shape the physical gate controller ever sees.
// OpenBarrier is the single authoritative boolean: every path that does not
// explicitly grant access must leave it false.
type GateResult struct {
	Status           string  `json:"status"`
	Message          string  `json:"message"`
	OpenBarrier      bool    `json:"open_barrier"`
	Action           string  `json:"action,omitempty"`
	BookingID        string  `json:"booking_id,omitempty"`
	SlotLocation     string  `json:"slot_location,omitempty"`
	Overtime         bool    `json:"overtime,omitempty"`
	OvertimeAmount   float64 `json:"overtime_amount,omitempty"`
	OvertimeDuration string  `json:"overtime_duration,omitempty"`
	TotalDuration    string  `json:"total_duration,omitempty"`
	Reason           string  `json:"reason,omitempty"`
}
