package models

import "time"

// Occupancy is the live sensor state of a physical bay. It is independent of
// booking state: a reserved slot can still be physically empty.
type Occupancy string

const (
	OccupancyEmpty    Occupancy = "empty"
	OccupancyOccupied Occupancy = "occupied"
)

func (o Occupancy) Valid() bool {
	return o == OccupancyEmpty || o == OccupancyOccupied
}

type Slot struct {
	ID          string    `json:"slot_id"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	RatePerHour float64   `json:"rate_per_hour"`
	IsActive    bool      `json:"is_active"`
	Occupancy   Occupancy `json:"current_occupancy"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AvailableSlot is the availability-query view of a slot.
type AvailableSlot struct {
	SlotID          string    `json:"slot_id"`
	Location        string    `json:"location"`
	Description     string    `json:"description"`
	RatePerHour     float64   `json:"rate_per_hour"`
	OccupancyStatus Occupancy `json:"occupancy_status"`
}
