package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/wyverncodes/universalis-proxy/internal/coalescer"
)

// Source identifies which tier (or the upstream itself) answered a lookup.
type Source string

const (
	SourceEdge     Source = "edge"
	SourceSlow     Source = "slow"
	SourceUpstream Source = "upstream"
)

// Result is what a successful Lookup returns.
type Result struct {
	Payload []byte
	Source  Source
	Stale   bool
}

// Fetcher performs the upstream fetch for a cache miss or a background
// revalidation. It returns the raw response payload.
type Fetcher func(ctx context.Context) ([]byte, error)

// BackgroundWork enqueues fn to run detached from the request lifetime. On
// platforms without a native "keep this promise alive" primitive, a
// bounded goroutine pool is enough; the process just must not exit while
// work is pending.
type BackgroundWork func(fn func())

func goBackground(fn func()) { go fn() }

// Cache is the dual-tier stale-while-revalidate cache: a fast edge tier
// probed first, an optional shared slow tier probed on edge miss, and a
// coalesced upstream fetch on a miss against both.
type Cache struct {
	edge       *edgeTier
	slow       SlowTier
	coalescer  *coalescer.Coalescer
	background BackgroundWork
	copyOnce   singleflight.Group
	logger     zerolog.Logger
}

// New builds a Cache. slow may be nil (or wrap a nil Redis client) to run
// edge-tier-only. background defaults to a plain goroutine per call when
// nil.
func New(slow SlowTier, coalesce *coalescer.Coalescer, background BackgroundWork, logger zerolog.Logger) *Cache {
	if background == nil {
		background = goBackground
	}
	return &Cache{
		edge:       newEdgeTier(),
		slow:       slow,
		coalescer:  coalesce,
		background: background,
		logger:     logger,
	}
}

// Lookup probes edge, then slow, then falls through to a coalesced
// upstream fetch. Cache probes never propagate errors — a failed probe is
// treated as a miss.
func (c *Cache) Lookup(ctx context.Context, key string, cfg Config, fetch Fetcher) (Result, error) {
	now := time.Now()

	if entry, ok := c.edge.Get(key); ok {
		if entry.Serveable(now) {
			stale := entry.Stale(now)
			if stale {
				c.enqueueRevalidation(key, cfg, fetch)
			}
			lookupsTotal.WithLabelValues(string(SourceEdge), boolLabel(stale)).Inc()
			return Result{Payload: entry.Payload, Source: SourceEdge, Stale: stale}, nil
		}
		// Expired past the SWR window: not serveable, remove it.
		c.edge.deleteIfSame(key, entry.CachedAt)
	}

	if c.slow != nil {
		entry, err := c.slow.Get(ctx, key)
		if err != nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("slow tier probe failed, treating as miss")
		}
		if entry != nil {
			if entry.Serveable(now) {
				stale := entry.Stale(now)
				// Populate the edge tier so subsequent local lookups skip
				// the slow probe. Deduplicated: a burst of edge misses for
				// the same key should not all copy the same value.
				c.background(func() {
					_, _, _ = c.copyOnce.Do(key, func() (interface{}, error) {
						c.edge.Set(entry)
						return nil, nil
					})
				})
				if stale {
					c.enqueueRevalidation(key, cfg, fetch)
				}
				lookupsTotal.WithLabelValues(string(SourceSlow), boolLabel(stale)).Inc()
				return Result{Payload: entry.Payload, Source: SourceSlow, Stale: stale}, nil
			}
			c.background(func() { _ = c.slow.Delete(context.Background(), key) })
		}
	}

	payload, err := c.coalescer.Do(ctx, key, coalescer.Producer(fetch))
	if err != nil {
		return Result{}, err
	}

	entry := &Entry{
		Key:       key,
		Payload:   payload,
		CachedAt:  time.Now(),
		TTL:       cfg.EdgeTTL,
		SWRWindow: cfg.SWRWindow,
	}
	c.background(func() { c.writeBoth(key, cfg, entry) })

	lookupsTotal.WithLabelValues(string(SourceUpstream), boolLabel(false)).Inc()
	return Result{Payload: payload, Source: SourceUpstream, Stale: false}, nil
}

// enqueueRevalidation schedules a background, coalesced refresh under a
// namespace distinct from in-band fetches so the two don't starve each
// other's coalescing group.
func (c *Cache) enqueueRevalidation(key string, cfg Config, fetch Fetcher) {
	c.background(func() {
		payload, err := c.coalescer.Do(context.Background(), "revalidate:"+key, coalescer.Producer(fetch))
		if err != nil {
			revalidationsTotal.WithLabelValues("failure").Inc()
			c.logger.Debug().Err(err).Str("key", key).Msg("background revalidation failed, stale entry ages out naturally")
			return
		}
		entry := &Entry{
			Key:       key,
			Payload:   payload,
			CachedAt:  time.Now(),
			TTL:       cfg.EdgeTTL,
			SWRWindow: cfg.SWRWindow,
		}
		c.writeBoth(key, cfg, entry)
		revalidationsTotal.WithLabelValues("success").Inc()
	})
}

// writeBoth stores entry in both tiers. The two writes are independent;
// either can fail without affecting the other or the response already
// sent to the caller. Callers run this on the background work handle so
// it never blocks the response path.
func (c *Cache) writeBoth(key string, cfg Config, entry *Entry) {
	edgeEntry := *entry
	edgeEntry.TTL = cfg.EdgeTTL
	c.edge.Set(&edgeEntry)

	if c.slow == nil {
		return
	}
	slowEntry := *entry
	slowEntry.TTL = cfg.SlowTTL
	if err := c.slow.Set(context.Background(), key, &slowEntry); err != nil {
		tierWriteErrorsTotal.WithLabelValues("slow").Inc()
		c.logger.Debug().Err(err).Str("key", key).Msg("slow tier write failed")
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
