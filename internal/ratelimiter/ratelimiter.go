// Package ratelimiter enforces per-tenant, multi-window request quotas.
//
// The original service checked each window with a separate GET, compared
// it to the limit, and only then issued INCR+EXPIRE — two round trips with
// a gap in between where concurrent requests could all read the same
// under-limit count and all be admitted, and where a request rejected on
// one window could still have incremented another. This package closes
// both gaps: every window is checked and every counter is incremented (or
// none of them are) as a single atomic operation per store.
package ratelimiter

import (
	"context"
	"time"

	"github.com/livingtwin/ragsvc/internal/domain"
)

// Limits caps the number of requests a tenant may make within each window.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

// WindowSpec names one window to enforce, with its limit and TTL.
type WindowSpec struct {
	Window domain.RateLimitWindow
	Limit  int
	TTL    time.Duration
}

func (l Limits) windows() []WindowSpec {
	specs := []WindowSpec{
		{domain.WindowMinute, l.PerMinute, time.Minute},
		{domain.WindowHour, l.PerHour, time.Hour},
		{domain.WindowDay, l.PerDay, 24 * time.Hour},
	}
	out := specs[:0]
	for _, s := range specs {
		if s.Limit > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Store is the storage backend a TenantRateLimiter is built on. CheckAndIncrement
// must evaluate every window and, if and only if all are within limit,
// increment all of them — as a single indivisible operation with no
// observable intermediate state between the check and the increments.
type Store interface {
	CheckAndIncrement(ctx context.Context, tenant domain.TenantID, windows []WindowSpec) (allowed bool, err error)
}

// TenantRateLimiter enforces Limits across all configured windows for a
// tenant.
type TenantRateLimiter struct {
	store  Store
	limits Limits
}

// New creates a TenantRateLimiter backed by store.
func New(store Store, limits Limits) *TenantRateLimiter {
	return &TenantRateLimiter{store: store, limits: limits}
}

// Allow atomically checks and consumes one unit of quota across every
// configured window for tenant.
func (t *TenantRateLimiter) Allow(ctx context.Context, tenant domain.TenantID) (bool, error) {
	windows := t.limits.windows()
	if len(windows) == 0 {
		return true, nil
	}
	return t.store.CheckAndIncrement(ctx, tenant, windows)
}
