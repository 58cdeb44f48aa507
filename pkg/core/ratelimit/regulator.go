// Package ratelimit provides the process-wide request regulator for the
// SEC EDGAR archive. The archive allows at most 10 requests per second per
// caller; every outbound request acquires one dispatch slot first.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Regulator spaces dispatches so that aggregate QPS stays at or below the
// configured limit regardless of how many goroutines share it. Internal
// state is a single timestamp guarded by a mutex; the lock is only held to
// reserve the next slot, never while sleeping or during I/O.
type Regulator struct {
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
}

// NewRegulator returns a regulator enforcing at most maxPerSecond dispatches
// per second. Values below 1 are treated as 1.
func NewRegulator(maxPerSecond int) *Regulator {
	if maxPerSecond < 1 {
		maxPerSecond = 1
	}
	return &Regulator{interval: time.Second / time.Duration(maxPerSecond)}
}

// Interval reports the minimum spacing between dispatches.
func (r *Regulator) Interval() time.Duration {
	return r.interval
}

// Acquire blocks until the caller may dispatch, maintaining the minimum
// spacing between consecutive dispatches. Each caller is assigned its own
// slot under the lock, so concurrent callers queue up in FIFO-ish order
// without ever exceeding the rate. Returns early with the context error if
// ctx is cancelled while waiting; the reserved slot is then forfeited.
func (r *Regulator) Acquire(ctx context.Context) error {
	r.mu.Lock()
	now := time.Now()
	next := r.last.Add(r.interval)
	if next.Before(now) {
		next = now
	}
	r.last = next
	r.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
