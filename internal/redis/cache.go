package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ridehail/internal/domain"
)

const driverCacheTTL = 5 * time.Minute

// CacheStore caches driver profiles for the read path. Entries are
// refreshed when a driver registers or changes status and expire on
// their own, so a trip counter bumped at settlement is stale for at
// most the TTL.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

func driverCacheKey(driverID string) string {
	return fmt.Sprintf("cache:driver:%s", driverID)
}

// SetDriver caches a driver profile.
func (s *CacheStore) SetDriver(ctx context.Context, driver *domain.Driver) error {
	data, err := json.Marshal(driver)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, driverCacheKey(driver.ID), data, driverCacheTTL).Err()
}

// GetDriver returns the cached profile, or nil on a miss.
func (s *CacheStore) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	data, err := s.client.Get(ctx, driverCacheKey(driverID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var driver domain.Driver
	if err := json.Unmarshal(data, &driver); err != nil {
		return nil, err
	}
	return &driver, nil
}

// InvalidateDriver drops a driver's cache entry.
func (s *CacheStore) InvalidateDriver(ctx context.Context, driverID string) error {
	return s.client.Del(ctx, driverCacheKey(driverID)).Err()
}
