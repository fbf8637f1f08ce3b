package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("availability not cached")

// AvailabilityCache is a short-TTL cache for availability responses. It is
// purely advisory: the booking path never consults it, and every booking
// state change invalidates the affected day.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func availabilityKey(doctorID uuid.UUID, day string) string {
	return fmt.Sprintf("avail:%s:%s", doctorID.String(), day)
}

func (c *AvailabilityCache) Get(ctx context.Context, doctorID uuid.UUID, day string) ([]time.Time, error) {
	raw, err := c.client.Get(ctx, availabilityKey(doctorID, day)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("get availability cache: %w", err)
	}

	var slots []time.Time
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, fmt.Errorf("decode availability cache: %w", err)
	}
	return slots, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, doctorID uuid.UUID, day string, slots []time.Time) error {
	raw, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("encode availability cache: %w", err)
	}

	if err := c.client.Set(ctx, availabilityKey(doctorID, day), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set availability cache: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, doctorID uuid.UUID, day string) error {
	if err := c.client.Del(ctx, availabilityKey(doctorID, day)).Err(); err != nil {
		return fmt.Errorf("invalidate availability cache: %w", err)
	}
	return nil
}
