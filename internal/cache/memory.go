package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/clock"
)

// Memory implements Store in-process. It exists for unit tests and single-node
// development; TTLs are evaluated lazily against the injected clock on read,
// so tests can expire keys by advancing a Manual clock.
type Memory struct {
	clock clock.Clock

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func NewMemory(clk clock.Clock) *Memory {
	return &Memory{
		clock:   clk,
		entries: make(map[string]memoryEntry),
	}
}

// lookup returns the live entry for key, dropping it first if expired.
// Callers must hold mu.
func (m *Memory) lookup(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(m.clock.Now()) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *Memory) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current int64
	expiresAt := time.Time{}
	if e, ok := m.lookup(key); ok {
		n, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, err
		}
		current = n
		expiresAt = e.expiresAt
	}
	current += delta
	m.entries[key] = memoryEntry{value: strconv.FormatInt(current, 10), expiresAt: expiresAt}
	return current, nil
}

func (m *Memory) GetCounter(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (m *Memory) SetCounter(ctx context.Context, key string, value int64, ttl time.Duration) error {
	return m.Set(ctx, key, strconv.FormatInt(value, 10), ttl)
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.clock.Now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok {
		return nil
	}
	e.expiresAt = m.clock.Now().Add(ttl)
	m.entries[key] = e
	return nil
}

func (m *Memory) AcquireLock(_ context.Context, name string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, held := m.lookup(name); held {
		return "", ErrLockBusy
	}
	token := uuid.NewString()
	e := memoryEntry{value: token}
	if ttl > 0 {
		e.expiresAt = m.clock.Now().Add(ttl)
	}
	m.entries[name] = e
	return token, nil
}

func (m *Memory) ReleaseLock(_ context.Context, name string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, held := m.lookup(name); held && e.value == token {
		delete(m.entries, name)
	}
	return nil
}
