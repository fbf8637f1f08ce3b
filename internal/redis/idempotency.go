package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrKeyNotFound = errors.New("idempotency key not found")

// IdempotencyStore remembers which appointment a client-supplied booking key
// produced, so a caller that timed out can re-query instead of double-booking.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

func idempotencyKey(key string) string {
	return "idem:booking:" + key
}

// Lookup returns the appointment previously recorded for key, or ErrKeyNotFound.
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (uuid.UUID, error) {
	raw, err := s.client.Get(ctx, idempotencyKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, ErrKeyNotFound
		}
		return uuid.Nil, fmt.Errorf("lookup idempotency key: %w", err)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt idempotency entry %q: %w", raw, err)
	}
	return id, nil
}

// Record stores the appointment created for key. SetNX keeps the first write;
// a concurrent duplicate that lost the booking race must not overwrite it.
func (s *IdempotencyStore) Record(ctx context.Context, key string, appointmentID uuid.UUID) error {
	if err := s.client.SetNX(ctx, idempotencyKey(key), appointmentID.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("record idempotency key: %w", err)
	}
	return nil
}
