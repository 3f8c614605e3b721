package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ErrInFlight means another request holding the same key is still executing.
var ErrInFlight = errors.New("duplicate_request_in_flight")

// pendingSentinel marks a key that has been reserved but whose response has
// not been stored yet.
const pendingSentinel = "__pending__"

// Store is a Redis-backed replay cache keyed by caller + client key. The
// reservation is a single SETNX, so exactly one of two racing requests with
// the same key executes; the loser either replays the stored response or
// fails with ErrInFlight.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	if client == nil {
		return nil
	}
	return &Store{client: client}
}

func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// Key builds the cache key for a caller-scoped idempotency token.
func Key(scope, callerID, clientKey string) string {
	return fmt.Sprintf("idemp:%s:%s:%s", scope, callerID, clientKey)
}

// Claim reserves the key. On success the caller owns the key and must call
// Complete or Release. If the key is already taken, Claim returns the stored
// response, or ErrInFlight when the original request has not finished.
func (s *Store) Claim(ctx context.Context, key string, ttl time.Duration) (cached []byte, claimed bool, err error) {
	if !s.Enabled() {
		return nil, true, nil
	}
	if key == "" {
		return nil, false, errors.New("idempotency key is empty")
	}
	if ttl <= 0 {
		return nil, false, errors.New("idempotency ttl must be positive")
	}

	ok, err := s.client.SetNX(ctx, key, pendingSentinel, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if ok {
		return nil, true, nil
	}

	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Reservation expired between SETNX and GET; treat as in flight
			// and let the client retry.
			return nil, false, ErrInFlight
		}
		return nil, false, err
	}
	if string(value) == pendingSentinel {
		return nil, false, ErrInFlight
	}
	return value, false, nil
}

// Complete stores the response against a claimed key, keeping the TTL that
// was set at claim time.
func (s *Store) Complete(ctx context.Context, key string, payload []byte) error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Set(ctx, key, payload, redis.KeepTTL).Err()
}

// Release drops the reservation so a retry can execute, used when the
// operation failed before producing a cacheable response.
func (s *Store) Release(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Del(ctx, key).Err()
}
