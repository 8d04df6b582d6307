// Package ratelimit implements the sliding-window request limiter that
// gates admission per client identifier before a request reaches the
// cache. It is defense-in-depth, not a strict global limit: state is
// process-local and lost on restart.
package ratelimit

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wyverncodes/universalis-proxy/internal/jitter"
)

// Policy is the (max, window) admission rule applied to every identifier.
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// Ledger is the per-identifier record of recent admitted timestamps.
type Ledger struct {
	Identifier string
	Timestamps []time.Time
}

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

const cleanupInterval = 10 * time.Second

// Limiter holds one ledger per identifier and admits requests against a
// sliding window.
type Limiter struct {
	mu        sync.Mutex
	ledgers   map[string]*Ledger
	lastSweep time.Time
	logger    zerolog.Logger
}

// New builds a Limiter.
func New(logger zerolog.Logger) *Limiter {
	return &Limiter{
		ledgers: make(map[string]*Ledger),
		logger:  logger,
	}
}

// Check decides whether identifier's next request is admitted under
// policy, records it if so, and returns the outcome: piggybacked sweep,
// locate-or-create the ledger, drop out-of-window timestamps, then admit
// or deny.
func (l *Limiter) Check(identifier string, policy Policy) Decision {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now, policy.Window)

	ledger, ok := l.ledgers[identifier]
	if !ok {
		ledger = &Ledger{Identifier: identifier}
		l.ledgers[identifier] = ledger
	}
	ledger.Timestamps = dropExpired(ledger.Timestamps, now.Add(-policy.Window))

	if len(ledger.Timestamps) >= policy.MaxRequests {
		deniesTotal.Inc()
		oldest := ledger.Timestamps[0]
		resetIn := oldest.Add(policy.Window).Sub(now)
		if resetIn < time.Second {
			resetIn = time.Second
		}
		return Decision{Allowed: false, Remaining: 0, ResetIn: resetIn}
	}

	ledger.Timestamps = append(ledger.Timestamps, now)
	admitsTotal.Inc()
	ledgerGauge.Set(float64(len(l.ledgers)))

	return Decision{
		Allowed:   true,
		Remaining: policy.MaxRequests - len(ledger.Timestamps),
		ResetIn:   policy.Window,
	}
}

// sweepLocked drops stale timestamps and empty ledgers across all
// identifiers, piggybacked on Check and jittered like the coalescer's
// sweep. Callers must hold l.mu.
func (l *Limiter) sweepLocked(now time.Time, window time.Duration) {
	interval := jitter.Duration(cleanupInterval, 0.2)
	if now.Sub(l.lastSweep) < interval {
		return
	}
	l.lastSweep = now

	cutoff := now.Add(-window)
	for id, ledger := range l.ledgers {
		ledger.Timestamps = dropExpired(ledger.Timestamps, cutoff)
		if len(ledger.Timestamps) == 0 {
			delete(l.ledgers, id)
		}
	}
	ledgerGauge.Set(float64(len(l.ledgers)))
}

// dropExpired returns the suffix of timestamps that are strictly after
// cutoff. timestamps is assumed ascending, as guaranteed by Check always
// appending the current time.
func dropExpired(timestamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(timestamps) && !timestamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return timestamps
	}
	return append([]time.Time(nil), timestamps[i:]...)
}
