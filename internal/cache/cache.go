// Package cache holds short-lived JSON documents (open carts, recovery
// sessions) keyed by id, with a time-to-live.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type Store[T any] interface {
	Get(ctx context.Context, key string) (*T, bool, error)
	Set(ctx context.Context, key string, value *T, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// Memory keeps encoded values in process. A ttl <= 0 never expires.
type Memory[T any] struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{entries: make(map[string]entry), now: time.Now}
}

// WithClock replaces the time source used for expiry.
func (m *Memory[T]) WithClock(now func() time.Time) *Memory[T] {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
	return m
}

func (m *Memory[T]) Get(_ context.Context, key string) (*T, bool, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	var out T
	if err := json.Unmarshal(e.payload, &out); err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

func (m *Memory[T]) Set(_ context.Context, key string, value *T, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e := entry{payload: payload}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	m.sweep()
	return nil
}

func (m *Memory[T]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// sweep drops expired entries. Caller holds the lock.
func (m *Memory[T]) sweep() {
	now := m.now()
	for k, e := range m.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}
