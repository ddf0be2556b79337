package repository

import (
	"context"

	"ridehail/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetByPhone retrieves a driver by phone number.
	GetByPhone(ctx context.Context, phone string) (*domain.Driver, error)

	// GetAll retrieves all drivers.
	GetAll(ctx context.Context) ([]*domain.Driver, error)

	// FindAvailable returns matching candidates: online, approved, and
	// without a ride currently in flight, ordered by rating descending
	// then total trips descending, capped at limit.
	FindAvailable(ctx context.Context, limit int) ([]*domain.Driver, error)

	// SetOnline flips a driver's online flag.
	SetOnline(ctx context.Context, id string, online bool) error

	// SetApproved flips a driver's approval flag.
	SetApproved(ctx context.Context, id string, approved bool) error

	// IncrementTrips bumps the driver's completed trip counter.
	IncrementTrips(ctx context.Context, id string) error
}
