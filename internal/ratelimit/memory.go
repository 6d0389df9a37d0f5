package ratelimit

import (
	"context"
	"sync"
	"time"
)

const sweepThreshold = 10000

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps counters in process. Counters are lost on restart and not shared
// between replicas; use RedisStore for that.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*window
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now, windows: make(map[string]*window)}
}

func (m *MemoryStore) Increment(_ context.Context, key string, length time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if len(m.windows) >= sweepThreshold {
		m.sweep(now)
	}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(length)}
		m.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt.Sub(now), nil
}

func (m *MemoryStore) sweep(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}
