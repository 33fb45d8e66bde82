package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PutMode selects the write precondition for [Store.Put].
//
// PutMode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PutMode int

const (
	// PutAlways is an exported constant or variable used by the control plane.
	PutAlways PutMode = iota
	// PutCreateOnly is an exported constant or variable used by the control plane.
	PutCreateOnly
	// PutUpdateOnly is an exported constant or variable used by the control plane.
	PutUpdateOnly
)

var (
	// ErrRecordNotFound is an exported constant or variable used by the control plane.
	ErrRecordNotFound = errors.New("record not found")
	// ErrRecordExists is an exported constant or variable used by the control plane.
	ErrRecordExists = errors.New("record already exists")
	// ErrRecordMissing is an exported constant or variable used by the control plane.
	ErrRecordMissing = errors.New("record missing for update")
	// ErrInvalidTTL is an exported constant or variable used by the control plane.
	ErrInvalidTTL = errors.New("ephemeral record requires a positive ttl")
	// ErrStoreUnavailable is an exported constant or variable used by the control plane.
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// Store is a purpose-scoped wrapper over a shared TTL-capable key-value
// store. It owns key naming, JSON (de)serialization and conditional
// TTL-aware writes; every other component reads and writes ephemeral state
// exclusively through it.
//
// Individual operations are atomic at the store. Sequences composed of
// several calls (read-then-conditionally-write) are not: two concurrent
// requests can both observe an absent key and race on the CreateOnly
// write. The store lets exactly one win; losers receive [ErrRecordExists]
// and are expected to re-read and adopt the winner's record rather than
// fail.
type Store struct {
	redis redis.UniversalClient
}

// NewStore wraps the given client. The client is shared process-wide and
// injected, never constructed here; connect-at-startup and fail-fast
// belong to the owner of the client.
func NewStore(client redis.UniversalClient) *Store {
	return &Store{redis: client}
}

// Put writes value under key with the given TTL. Structured values are
// serialized to canonical JSON text; plain strings and []byte pass through
// unchanged. A zero or negative TTL is rejected: ephemeral records are
// never written without an explicit expiry.
func (s *Store) Put(ctx context.Context, key string, value any, ttl time.Duration, mode PutMode) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	payload, err := encodeValue(value)
	if err != nil {
		return err
	}

	args := redis.SetArgs{TTL: ttl}
	switch mode {
	case PutCreateOnly:
		args.Mode = "NX"
	case PutUpdateOnly:
		args.Mode = "XX"
	}

	if err := s.redis.SetArgs(ctx, key, payload, args).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			// Condition not met. The store treats this as a no-op; the
			// sentinel tells the caller which precondition failed.
			if mode == PutCreateOnly {
				return ErrRecordExists
			}
			return ErrRecordMissing
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// Get returns the raw stored text for key, or [ErrRecordNotFound] when the
// key is absent or its TTL has elapsed.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrRecordNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return value, nil
}

// GetJSON fetches key and unmarshals the stored JSON document into dest.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) error {
	value, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return fmt.Errorf("decode record %q: %w", key, err)
	}
	return nil
}

// Delete removes the given keys and returns how many existed.
func (s *Store) Delete(ctx context.Context, keys ...string) (int64, error) {
	removed, err := s.redis.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return removed, nil
}

// Incr atomically increments the integer value at key.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

// Decr atomically decrements the integer value at key.
func (s *Store) Decr(ctx context.Context, key string) (int64, error) {
	count, err := s.redis.Decr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

// AddToSet adds member to the set at key. When ttl is positive it is
// applied to the whole set: by default only if the set carries no expiry
// yet, so that repeated additions never shorten an existing window;
// refreshTTL forces the expiry to be rewritten.
func (s *Store) AddToSet(ctx context.Context, key, member string, ttl time.Duration, refreshTTL bool) error {
	if err := s.redis.SAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if ttl > 0 {
		var err error
		if refreshTTL {
			err = s.redis.Expire(ctx, key, ttl).Err()
		} else {
			err = s.redis.ExpireNX(ctx, key, ttl).Err()
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	return nil
}

// RemoveFromSet removes member from the set at key.
func (s *Store) RemoveFromSet(ctx context.Context, key, member string) error {
	if err := s.redis.SRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// SetCardinality returns the number of members in the set at key.
// A missing set counts as zero.
func (s *Store) SetCardinality(ctx context.Context, key string) (int64, error) {
	count, err := s.redis.SCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

// SetMembers returns all members of the set at key.
func (s *Store) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.redis.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return members, nil
}

// TTL returns the remaining lifetime of key. Missing keys and keys without
// an expiry report zero.
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	remaining, err := s.redis.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

func encodeValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("encode record: %w", err)
		}
		return string(data), nil
	}
}
