package cache

import (
	"context"
	"sync"
	"time"
)

type item struct {
	snap      Snapshot
	expiresAt time.Time
}

// Memory is a thread-safe in-process store with TTL expiration.
type Memory struct {
	items map[string]item
	mu    sync.RWMutex
	ttl   time.Duration
	stop  chan struct{}
	once  sync.Once
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	m := &Memory{
		items: make(map[string]item),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	go m.cleanup()
	return m
}

func (m *Memory) Get(_ context.Context, key string) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.items[key]
	if !ok || time.Now().After(it.expiresAt) {
		return Snapshot{}, false, nil
	}
	return it.snap, true, nil
}

func (m *Memory) Set(_ context.Context, key string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = item{
		snap:      snap,
		expiresAt: time.Now().Add(m.ttl),
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Close stops the background cleanup goroutine.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) cleanup() {
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.removeExpired()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, it := range m.items {
		if now.After(it.expiresAt) {
			delete(m.items, key)
		}
	}
}
