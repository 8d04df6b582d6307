// Package coalescer implements single-flight request coalescing: concurrent
// misses for the same key collapse into one producer invocation whose
// result fans out to every waiter.
package coalescer

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/wyverncodes/universalis-proxy/internal/jitter"
)

const shardCount = 16

// Producer fetches the value for a coalesced key. It is invoked with a
// context detached from any single caller's cancellation — other waiters
// may still depend on its result after the caller that triggered it has
// given up.
type Producer func(ctx context.Context) ([]byte, error)

type inFlight struct {
	done      chan struct{}
	createdAt time.Time
	value     []byte
	err       error
}

type shard struct {
	mu        sync.Mutex
	entries   map[string]*inFlight
	lastSweep time.Time
}

// Coalescer deduplicates concurrent producer calls for identical keys and
// bounds the tracking map's lifetime so a hung producer cannot leak memory.
type Coalescer struct {
	shards          [shardCount]*shard
	maxInFlight     time.Duration
	cleanupInterval time.Duration
	linger          time.Duration
}

// New builds a Coalescer.
//
//   - maxInFlight bounds how long an entry may sit untouched before the
//     safety sweep detaches it, regardless of whether its producer has
//     completed.
//   - cleanupInterval is the target spacing between sweeps; each sweep is
//     jittered ±20% and piggybacked on calls to Do, never run on its own
//     timer.
//   - linger is how long a successfully completed entry is kept around
//     after completion, so a burst of near-simultaneous callers keeps
//     sharing the one fetch even if they arrive just after it finishes.
func New(maxInFlight, cleanupInterval, linger time.Duration) *Coalescer {
	c := &Coalescer{
		maxInFlight:     maxInFlight,
		cleanupInterval: cleanupInterval,
		linger:          linger,
	}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]*inFlight)}
	}
	return c
}

func (c *Coalescer) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum32()%shardCount]
}

// Do executes fn or attaches to an already in-flight call for key. If no
// entry exists, one is inserted synchronously before fn is invoked — the
// insert-then-call ordering is the entire correctness argument for
// single-flight: inserting after an await point would let a second caller
// arrive in the gap and double-fetch.
func (c *Coalescer) Do(ctx context.Context, key string, fn Producer) ([]byte, error) {
	sh := c.shardFor(key)
	now := time.Now()

	sh.mu.Lock()
	c.sweepLocked(sh, now)
	if existing, ok := sh.entries[key]; ok {
		done := existing.done
		sh.mu.Unlock()
		joinsTotal.Inc()
		select {
		case <-done:
			return existing.value, existing.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	entry := &inFlight{done: make(chan struct{}), createdAt: now}
	sh.entries[key] = entry
	inFlightGauge.Inc()
	sh.mu.Unlock()

	go func() {
		value, err := fn(context.WithoutCancel(ctx))
		entry.value, entry.err = value, err
		if err != nil {
			c.detach(sh, key, entry)
		} else {
			time.AfterFunc(c.linger, func() { c.detach(sh, key, entry) })
		}
		close(entry.done)
	}()

	select {
	case <-entry.done:
		return entry.value, entry.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Coalescer) detach(sh *shard, key string, entry *inFlight) {
	sh.mu.Lock()
	if current, ok := sh.entries[key]; ok && current == entry {
		delete(sh.entries, key)
		inFlightGauge.Dec()
	}
	sh.mu.Unlock()
}

// sweepLocked runs the safety eviction: piggybacked on Do, never on its
// own timer, and jittered so many shards (or many processes) don't all
// sweep at the same instant. Callers must hold sh.mu.
func (c *Coalescer) sweepLocked(sh *shard, now time.Time) {
	interval := jitter.Duration(c.cleanupInterval, 0.2)
	if now.Sub(sh.lastSweep) < interval {
		return
	}
	sh.lastSweep = now
	for key, entry := range sh.entries {
		if now.Sub(entry.createdAt) > c.maxInFlight {
			delete(sh.entries, key)
			inFlightGauge.Dec()
		}
	}
}

// IsInFlight reports whether key currently has a tracked entry. Diagnostic
// only — the answer can be stale the instant it's returned.
func (c *Coalescer) IsInFlight(key string) bool {
	sh := c.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, ok := sh.entries[key]
	return ok
}

// InFlightCount returns the total number of tracked entries across all
// shards. Diagnostic only.
func (c *Coalescer) InFlightCount() int {
	total := 0
	for _, sh := range c.shards {
		sh.mu.Lock()
		total += len(sh.entries)
		sh.mu.Unlock()
	}
	return total
}
