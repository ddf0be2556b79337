package repository

import (
	"context"

	"ridehail/internal/domain"
)

// StatusEventRepository stores the append-only status history of rides,
// kept out of the ride row so history growth never bloats it.
type StatusEventRepository interface {
	// Append records a status change.
	Append(ctx context.Context, event *domain.StatusEvent) error

	// ListByRide returns a ride's status history in order of occurrence.
	ListByRide(ctx context.Context, rideID string) ([]*domain.StatusEvent, error)
}
