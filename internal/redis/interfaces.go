package redis

import (
	"context"
	"time"

	"ridehail/internal/domain"
)

// TraceStoreInterface defines the interface for GPS trace operations.
type TraceStoreInterface interface {
	Append(ctx context.Context, rideID string, point domain.GPSPoint) error
	Get(ctx context.Context, rideID string) ([]domain.GPSPoint, error)
	Clear(ctx context.Context, rideID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireDriverLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error)
	ReleaseDriverLock(ctx context.Context, driverID string) error
	AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error)
	ReleaseRideLock(ctx context.Context, rideID string) error
}

// CacheStoreInterface defines the interface for the driver profile cache.
type CacheStoreInterface interface {
	SetDriver(ctx context.Context, driver *domain.Driver) error
	GetDriver(ctx context.Context, driverID string) (*domain.Driver, error)
	InvalidateDriver(ctx context.Context, driverID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ TraceStoreInterface = (*TraceStore)(nil)
	_ LockStoreInterface  = (*LockStore)(nil)
	_ CacheStoreInterface = (*CacheStore)(nil)
)
