package models

// CredentialDisplay is the display-only metadata bundle rendered alongside a
// credential payload. It never participates in gate validation.
type CredentialDisplay struct {
	BookingReference string
	SlotID           string
	SlotLocation     string
	StartTime        string
	EndTime          string
	TotalAmount      float64
}
