package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ridehail/internal/domain"
)

// traceTTL bounds how long a ride's trace is retained after its last point.
const traceTTL = 48 * time.Hour

// TraceStore keeps the ordered GPS trace of each ride in Redis.
type TraceStore struct {
	client *redis.Client
}

// NewTraceStore creates a new TraceStore.
func NewTraceStore(client *redis.Client) *TraceStore {
	return &TraceStore{client: client}
}

func traceKey(rideID string) string {
	return fmt.Sprintf("trace:ride:%s", rideID)
}

// Append adds a point to the end of a ride's trace.
func (s *TraceStore) Append(ctx context.Context, rideID string, point domain.GPSPoint) error {
	data, err := json.Marshal(point)
	if err != nil {
		return err
	}

	key := traceKey(rideID)
	if err := s.client.RPush(ctx, key, data).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, traceTTL).Err()
}

// Get returns a ride's full trace in submission order.
func (s *TraceStore) Get(ctx context.Context, rideID string) ([]domain.GPSPoint, error) {
	raw, err := s.client.LRange(ctx, traceKey(rideID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	points := make([]domain.GPSPoint, 0, len(raw))
	for _, item := range raw {
		var point domain.GPSPoint
		if err := json.Unmarshal([]byte(item), &point); err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, nil
}

// Clear drops a ride's trace.
func (s *TraceStore) Clear(ctx context.Context, rideID string) error {
	return s.client.Del(ctx, traceKey(rideID)).Err()
}
