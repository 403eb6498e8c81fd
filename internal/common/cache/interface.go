package cache

import (
	"context"
	"time"
)

// Cache defines the unified interface for key-value store operations.
// This abstraction allows switching between store implementations
// (Redis, local memory) without changing business logic.
type Cache interface {
	BasicOps
	HashOps
	ListOps

	// Ping verifies the store connection is alive
	Ping(ctx context.Context) error

	// Close closes the store connection
	Close() error
}

// BasicOps defines basic key-value operations
type BasicOps interface {
	// Get retrieves the value for the given key; empty string when absent
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key-value pair with optional TTL
	// If ttl is 0, the key will not expire
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Del deletes one or more keys
	Del(ctx context.Context, keys ...string) error

	// Exists checks if one or more keys exist
	// Returns the number of keys that exist
	Exists(ctx context.Context, keys ...string) (int64, error)

	// Expire sets a timeout on a key
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns the remaining time to live of a key
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// HashOps defines hash (map) operations
type HashOps interface {
	// HSet sets field in the hash stored at key to value
	HSet(ctx context.Context, key, field string, value interface{}) error

	// HGet returns the value associated with field in the hash stored at key
	HGet(ctx context.Context, key, field string) (string, error)

	// HGetAll returns all fields and values of the hash stored at key
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// HMSet sets multiple fields in the hash stored at key
	HMSet(ctx context.Context, key string, fields map[string]interface{}) error
}

// ListOps defines list operations, including the blocking pop the
// work queues are built on
type ListOps interface {
	// LPush prepends one or more values to a list
	LPush(ctx context.Context, key string, values ...interface{}) error

	// RPop removes and returns the last element of a list; empty when absent
	RPop(ctx context.Context, key string) (string, error)

	// BRPop blocks up to timeout waiting for an element on any of the keys.
	// Returns the key the element came from and the element, or empty
	// strings when the timeout elapsed with nothing available.
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) (string, string, error)

	// LLen returns the length of a list
	LLen(ctx context.Context, key string) (int64, error)
}
