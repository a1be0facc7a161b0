// Package ratelimit guards the intake endpoint against abusive clients with a
// sliding-log limiter keyed by client identity.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// DefaultSweepProbability is the chance that a single Check also sweeps
// identities whose whole log has fallen out of the window.
const DefaultSweepProbability = 0.01

// Guard decides whether a client identity has exhausted its attempts.
// Check returns true when the request must be blocked. Implementations never
// fail: missing state counts as zero attempts.
type Guard interface {
	Check(ctx context.Context, identity string, maxAttempts int, window time.Duration) bool
}

// MemoryGuard keeps a per-identity log of attempt timestamps in process
// memory. Each instance of the service has its own log, so the effective limit
// is multiplied by the number of running instances.
type MemoryGuard struct {
	mu       sync.Mutex
	attempts map[string][]time.Time

	now       func() time.Time
	sweepRoll func() float64
	sweepProb float64
}

// MemoryOption customizes a MemoryGuard.
type MemoryOption func(*MemoryGuard)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(g *MemoryGuard) { g.now = now }
}

// WithSweep overrides the sweep probability and the random source used to roll it.
func WithSweep(probability float64, roll func() float64) MemoryOption {
	return func(g *MemoryGuard) {
		g.sweepProb = probability
		if roll != nil {
			g.sweepRoll = roll
		}
	}
}

// NewMemoryGuard builds an empty in-memory guard.
func NewMemoryGuard(opts ...MemoryOption) *MemoryGuard {
	g := &MemoryGuard{
		attempts:  make(map[string][]time.Time),
		now:       time.Now,
		sweepRoll: rand.Float64,
		sweepProb: DefaultSweepProbability,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ Guard = (*MemoryGuard)(nil)

// Check trims the identity's log to the window, blocks when the remaining
// count has reached maxAttempts, and otherwise records the attempt. Blocked
// attempts are not recorded.
func (g *MemoryGuard) Check(_ context.Context, identity string, maxAttempts int, window time.Duration) bool {
	now := g.now()
	windowStart := now.Add(-window)

	g.mu.Lock()
	defer g.mu.Unlock()

	recent := inWindow(g.attempts[identity], windowStart)
	if len(recent) >= maxAttempts {
		g.store(identity, recent)
		return true
	}

	if window > 0 {
		recent = append(recent, now)
	}
	g.store(identity, recent)

	if g.sweepProb > 0 && g.sweepRoll() < g.sweepProb {
		g.sweepLocked(windowStart)
	}
	return false
}

// Len reports how many identities currently hold state.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.attempts)
}

// Sweep drops every timestamp older than window and removes identities left
// with nothing.
func (g *MemoryGuard) Sweep(window time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sweepLocked(g.now().Add(-window))
}

func (g *MemoryGuard) sweepLocked(windowStart time.Time) {
	for identity, log := range g.attempts {
		g.store(identity, inWindow(log, windowStart))
	}
}

func (g *MemoryGuard) store(identity string, log []time.Time) {
	if len(log) == 0 {
		delete(g.attempts, identity)
		return
	}
	g.attempts[identity] = log
}

// inWindow returns the suffix of log strictly after windowStart. The log is
// append-only with a monotonic clock so the cut point is the first kept entry.
func inWindow(log []time.Time, windowStart time.Time) []time.Time {
	for i, ts := range log {
		if ts.After(windowStart) {
			return log[i:]
		}
	}
	return nil
}
