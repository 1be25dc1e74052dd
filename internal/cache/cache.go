// Package cache wraps the fast ephemeral store the admission engine relies on:
// atomic counters with TTL and a named mutual-exclusion primitive. Correctness
// depends on cross-process atomicity, so counters are never plain in-process
// variables.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLockBusy is returned by AcquireLock when another owner holds the lock.
	ErrLockBusy = errors.New("lock busy")
	// ErrLockWaitTimeout is returned by WithLock when the wait budget elapses
	// before the lock is acquired.
	ErrLockWaitTimeout = errors.New("lock wait timeout")
)

// Store is the minimal fast-store surface used by the engine.
type Store interface {
	// IncrBy atomically adds delta (which may be negative) to the counter at
	// key, creating it at zero first, and returns the new value.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	// GetCounter reads a counter; ok is false when the key is absent or expired.
	GetCounter(ctx context.Context, key string) (value int64, ok bool, err error)
	// SetCounter writes a counter with a TTL (0 means no expiry).
	SetCounter(ctx context.Context, key string, value int64, ttl time.Duration) error
	// Set writes a string value with a TTL (0 means no expiry).
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Expire sets the TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// AcquireLock takes the named lock for at most ttl and returns an owner
	// token, or ErrLockBusy if someone else holds it.
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, error)
	// ReleaseLock releases the named lock if token still owns it. Releasing a
	// lock that expired or changed owner is a no-op, not an error.
	ReleaseLock(ctx context.Context, name string, token string) error
}

// lockPollInterval is how often WithLock retries a busy lock.
const lockPollInterval = 20 * time.Millisecond

// WithLock runs fn while holding the named lock, retrying acquisition for at
// most wait. The lock is released on every exit path, including panics in fn.
// A wait budget exhausted without acquisition yields ErrLockWaitTimeout.
func WithLock(ctx context.Context, s Store, name string, ttl, wait time.Duration, fn func(ctx context.Context) error) error {
	deadline := time.Now().Add(wait)
	var token string
	for {
		t, err := s.AcquireLock(ctx, name, ttl)
		if err == nil {
			token = t
			break
		}
		if !errors.Is(err, ErrLockBusy) {
			return err
		}
		if time.Now().After(deadline) {
			return ErrLockWaitTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
	defer func() {
		_ = s.ReleaseLock(context.WithoutCancel(ctx), name, token)
	}()
	return fn(ctx)
}
