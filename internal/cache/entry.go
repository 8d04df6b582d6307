// Package cache implements the dual-tier stale-while-revalidate cache
// that sits in front of the upstream market-price API: a fast in-process
// edge tier backed by an optional shared, slower Redis tier.
package cache

import (
	"fmt"
	"time"
)

// Entry is the unit of cached content. Payload is opaque; the cache never
// interprets it, only ages it against TTL and the SWR window.
type Entry struct {
	Key       string        `json:"key"`
	Payload   []byte        `json:"payload"`
	CachedAt  time.Time     `json:"cachedAt"`
	TTL       time.Duration `json:"ttl"`
	SWRWindow time.Duration `json:"swrWindow"`
}

// Age is how long ago the entry was cached, relative to now.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CachedAt)
}

// Fresh reports whether the entry is within its TTL.
func (e *Entry) Fresh(now time.Time) bool {
	return e.Age(now) <= e.TTL
}

// Serveable reports whether the entry may still be returned to a caller,
// fresh or stale.
func (e *Entry) Serveable(now time.Time) bool {
	return e.Age(now) <= e.TTL+e.SWRWindow
}

// Stale reports whether the entry is serveable but past its TTL.
func (e *Entry) Stale(now time.Time) bool {
	return e.Serveable(now) && !e.Fresh(now)
}

// CacheControl renders the max-age directive for the client-facing
// response: TTL only. A client should treat the response as needing
// revalidation once it goes stale, even though this cache keeps serving
// it internally through the SWR window.
func (e *Entry) CacheControl() string {
	return fmt.Sprintf("public, max-age=%d", int(e.TTL.Seconds()))
}
