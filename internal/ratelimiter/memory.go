package ratelimiter

import (
	"context"
	"sync"
	"time"

	"github.com/livingtwin/ragsvc/internal/domain"
)

type counterKey struct {
	tenant domain.TenantID
	window domain.RateLimitWindow
}

type counter struct {
	count   int
	expires time.Time
}

// Memory is an in-process Store, the default for local development and
// tests. A single mutex makes the whole multi-window check-and-increment
// one atomic critical section.
type Memory struct {
	mu    sync.Mutex
	now   func() time.Time
	state map[counterKey]counter
}

// NewMemory creates an empty in-memory rate limit Store.
func NewMemory() *Memory {
	return &Memory{now: time.Now, state: make(map[counterKey]counter)}
}

func (m *Memory) CheckAndIncrement(_ context.Context, tenant domain.TenantID, windows []WindowSpec) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	// Phase 1: check every window without mutating state.
	for _, w := range windows {
		key := counterKey{tenant, w.Window}
		c, ok := m.state[key]
		if ok && now.Before(c.expires) && c.count >= w.Limit {
			return false, nil
		}
	}

	// Phase 2: all windows passed, so increment every one of them.
	for _, w := range windows {
		key := counterKey{tenant, w.Window}
		c, ok := m.state[key]
		if !ok || !now.Before(c.expires) {
			c = counter{count: 0, expires: now.Add(w.TTL)}
		}
		c.count++
		m.state[key] = c
	}
	return true, nil
}
