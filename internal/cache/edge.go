package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

// edgeShardCount mirrors the coalescer's sharding: enough shards that
// concurrent lookups for unrelated keys rarely contend on the same lock.
const edgeShardCount = 16

// edgeTier is the fast, local, per-process store. It is authoritative for
// latency: it is always probed first.
type edgeTier struct {
	shards [edgeShardCount]*edgeShard
}

type edgeShard struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func newEdgeTier() *edgeTier {
	t := &edgeTier{}
	for i := range t.shards {
		t.shards[i] = &edgeShard{entries: make(map[string]*Entry)}
	}
	return t
}

func (t *edgeTier) shardFor(key string) *edgeShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return t.shards[h.Sum32()%edgeShardCount]
}

func (t *edgeTier) Get(key string) (*Entry, bool) {
	sh := t.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.entries[key]
	return e, ok
}

func (t *edgeTier) Set(e *Entry) {
	sh := t.shardFor(e.Key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.entries[e.Key] = e
}

func (t *edgeTier) Delete(key string) {
	sh := t.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.entries, key)
}

// deleteIfSame is invoked from lookup when an entry is found to be past its
// SWR window. It removes only that key, rather than scanning the whole
// tier, and only if the stored entry still has the given CachedAt, so a
// newer write that landed in the meantime is kept.
func (t *edgeTier) deleteIfSame(key string, cachedAt time.Time) {
	sh := t.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.entries[key]; ok && e.CachedAt.Equal(cachedAt) {
		delete(sh.entries, key)
	}
}
