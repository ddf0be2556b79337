package repository

import (
	"context"
	"time"

	"ridehail/internal/domain"
)

// RideCondition is the expected prior state of a ride for a conditional
// update. A zero field is not checked.
type RideCondition struct {
	Status           domain.RideStatus
	DriverUnassigned bool   // require driver_id IS NULL
	DriverID         string // require driver_id = this value
}

// RideChange is the set of fields a conditional update may write. Nil
// pointers leave the column untouched.
type RideChange struct {
	Status           *domain.RideStatus
	DriverID         *string
	LockedFare       *int64
	CommissionRate   *float64
	CommissionAmount *int64
	PayoutAmount     *int64
	FraudScore       *int
	FraudReasons     []string
	PayoutHeld       *bool
	ReviewRequired   *bool
	CancelReason     *string
	StartedAt        *time.Time
	CompletedAt      *time.Time
	SettledAt        *time.Time
	CancelledAt      *time.Time
}

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetAll retrieves recent rides.
	GetAll(ctx context.Context) ([]*domain.Ride, error)

	// UpdateWhere applies change to the ride only if cond still holds.
	// It returns false when the condition no longer matches, which is the
	// compare-and-swap point all state transitions rely on.
	UpdateWhere(ctx context.Context, id string, cond RideCondition, change RideChange) (bool, error)
}
