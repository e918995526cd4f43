package attempt

import (
	"context"
	"sync"
	"time"

	"camptrade/internal/app/apperr"
)

var _ Limiter = (*Memory)(nil)

type Memory struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	attempts  int
	expiresAt time.Time
}

type MemoryOption func(*Memory)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

func NewMemory(max int, window time.Duration, opts ...MemoryOption) *Memory {
	m := &Memory{
		max:     max,
		window:  window,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Memory) Acquire(_ context.Context, key string) error {
	if m.max <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, _ := m.live(key)
	e.attempts++
	e.expiresAt = m.now().Add(m.window)
	m.entries[key] = e

	if e.attempts > m.max {
		return apperr.ErrTooManyAttempts
	}

	return nil
}

func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// live returns the entry for key, dropping it when expired. Caller holds mu.
func (m *Memory) live(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}
