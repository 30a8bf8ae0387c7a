package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by KV.Get when the key is absent or expired.
var ErrNotFound = errors.New("storage: key not found")

// KV is the durable key/value port behind cart and wishlist persistence.
// Implementations are chosen once at startup; the engines never inspect
// which one they run on.
type KV interface {
	// Get returns the raw value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any prior value. A ttl of zero
	// means the entry does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// Nop is a KV that stores nothing. Reads always miss and writes succeed
// silently, so code runs unchanged where no durable storage exists.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, error)              { return nil, ErrNotFound }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Delete(context.Context, string) error                     { return nil }
func (Nop) Ping(context.Context) error                               { return nil }
