package models

import "time"

const (
	// MinBookingDuration and MaxBookingDuration bound a single reservation.
	MinBookingDuration = 30 * time.Minute
	MaxBookingDuration = 24 * time.Hour

	// DefaultGracePeriod is the buffer after end_time during which no
	// overtime accrues.
	DefaultGracePeriod = 10 * time.Minute

	// DefaultLateEntryCutoff is how long after start_time an entry scan is
	// still honored. Independent of the grace period.
	DefaultLateEntryCutoff = 2 * time.Hour

	// DefaultRatePerHour is the fallback hourly rate when a slot record
	// carries none.
	DefaultRatePerHour = 2.0

	// GatewayTimeout bounds every remote payment gateway call.
	GatewayTimeout = 30 * time.Second

	// SlotCacheTTL время жизни кэша слотов в памяти.
	SlotCacheTTL = 5 * time.Minute
)
