package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested  RideStatus = "REQUESTED"
	RideStatusAssigned   RideStatus = "ASSIGNED"
	RideStatusArrived    RideStatus = "ARRIVED"
	RideStatusInProgress RideStatus = "IN_PROGRESS"
	RideStatusCompleted  RideStatus = "COMPLETED"
	RideStatusSettled    RideStatus = "SETTLED"
	RideStatusCancelled  RideStatus = "CANCELLED"
	RideStatusFailed     RideStatus = "FAILED"
)

// IsTerminal reports whether a ride in this status accepts no further transitions.
func (s RideStatus) IsTerminal() bool {
	switch s {
	case RideStatusSettled, RideStatusCancelled, RideStatusFailed:
		return true
	}
	return false
}

// Ride represents a ride through its full lifecycle, from request to settlement.
// Monetary amounts are in minor currency units (cents).
type Ride struct {
	ID             string
	RiderID        string
	DriverID       string // empty until a driver is assigned
	PickupAddress  string
	DropoffAddress string
	PickupLat      float64
	PickupLng      float64
	DropoffLat     float64
	DropoffLng     float64
	Status         RideStatus

	FareEstimate int64
	LockedFare   int64 // set once when the trip starts, immutable after

	EstimatedDistanceKm  float64
	EstimatedDurationMin float64

	// Settlement outcome, populated when the ride reaches SETTLED.
	CommissionRate   float64
	CommissionAmount int64
	PayoutAmount     int64

	// Fraud assessment, attached when the ride reaches COMPLETED.
	FraudScore     int
	FraudReasons   []string
	PayoutHeld     bool
	ReviewRequired bool

	CancelReason string

	RequestedAt time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	SettledAt   time.Time
	CancelledAt time.Time
}

// StatusEvent is one entry in a ride's append-only status history.
type StatusEvent struct {
	ID         string
	RideID     string
	Status     RideStatus
	ActorID    string
	ActorRole  ActorRole
	OccurredAt time.Time
}
