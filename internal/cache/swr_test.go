package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wyverncodes/universalis-proxy/internal/coalescer"
)

// syncBackground runs background work inline so tests can assert on its
// effects without racing a goroutine.
func syncBackground(fn func()) { fn() }

func newTestCache(slow SlowTier) *Cache {
	if slow == nil {
		slow = NewRedisSlowTier(nil)
	}
	c := coalescer.New(30*time.Second, 10*time.Second, 10*time.Millisecond)
	return New(slow, c, syncBackground, zerolog.Nop())
}

func TestLookupMissInvokesFetcherAndCachesResult(t *testing.T) {
	cache := newTestCache(nil)
	cfg := Config{EdgeTTL: time.Minute, SlowTTL: time.Minute, SWRWindow: time.Minute}

	var calls int32
	fetch := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("payload"), nil
	}

	result, err := cache.Lookup(context.Background(), "k1", cfg, fetch)
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if result.Source != SourceUpstream || result.Stale {
		t.Fatalf("unexpected result: %+v", result)
	}
	if calls != 1 {
		t.Fatalf("expected fetcher called once, got %d", calls)
	}

	result2, err := cache.Lookup(context.Background(), "k1", cfg, fetch)
	if err != nil {
		t.Fatalf("second Lookup returned error: %v", err)
	}
	if result2.Source != SourceEdge || result2.Stale {
		t.Fatalf("expected fresh edge hit, got %+v", result2)
	}
	if calls != 1 {
		t.Fatalf("expected fetcher not called again on fresh hit, got %d calls", calls)
	}
}

func TestLookupStaleTriggersRevalidation(t *testing.T) {
	cache := newTestCache(nil)
	cfg := Config{EdgeTTL: 10 * time.Millisecond, SlowTTL: 10 * time.Millisecond, SWRWindow: time.Minute}

	var calls int32
	fetch := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("payload"), nil
	}

	if _, err := cache.Lookup(context.Background(), "k2", cfg, fetch); err != nil {
		t.Fatalf("initial lookup failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	result, err := cache.Lookup(context.Background(), "k2", cfg, fetch)
	if err != nil {
		t.Fatalf("stale lookup returned error: %v", err)
	}
	if result.Source != SourceEdge || !result.Stale {
		t.Fatalf("expected stale edge hit, got %+v", result)
	}
	if calls != 2 {
		t.Fatalf("expected revalidation to invoke fetcher, got %d calls", calls)
	}
}

func TestLookupExpiredPastSWRIsTreatedAsMiss(t *testing.T) {
	cache := newTestCache(nil)
	cfg := Config{EdgeTTL: 5 * time.Millisecond, SlowTTL: 5 * time.Millisecond, SWRWindow: 5 * time.Millisecond}

	var calls int32
	fetch := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("payload"), nil
	}

	if _, err := cache.Lookup(context.Background(), "k3", cfg, fetch); err != nil {
		t.Fatalf("initial lookup failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	result, err := cache.Lookup(context.Background(), "k3", cfg, fetch)
	if err != nil {
		t.Fatalf("post-expiry lookup returned error: %v", err)
	}
	if result.Source != SourceUpstream {
		t.Fatalf("expected expired entry to be re-fetched from upstream, got %+v", result)
	}
	if calls != 2 {
		t.Fatalf("expected a fresh fetch after expiry, got %d calls", calls)
	}
}

func TestLookupPropagatesUpstreamFailure(t *testing.T) {
	cache := newTestCache(nil)
	cfg := Config{EdgeTTL: time.Minute, SlowTTL: time.Minute, SWRWindow: time.Minute}

	wantErr := errors.New("upstream boom")
	fetch := func(ctx context.Context) ([]byte, error) {
		return nil, wantErr
	}

	_, err := cache.Lookup(context.Background(), "k4", cfg, fetch)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected upstream error to propagate, got %v", err)
	}
}

func TestConcurrentMissesCoalesceToOneUpstreamCall(t *testing.T) {
	cache := newTestCache(nil)
	cfg := Config{EdgeTTL: time.Minute, SlowTTL: time.Minute, SWRWindow: time.Minute}

	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("payload"), nil
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]Result, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Lookup(context.Background(), "k5", cfg, fetch)
		}(i)
	}

	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", calls)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("waiter %d got error: %v", i, errs[i])
		}
		if string(results[i].Payload) != "payload" {
			t.Fatalf("waiter %d got payload %q", i, results[i].Payload)
		}
	}
}

func TestLookupFallsThroughToSlowTierOnEdgeMiss(t *testing.T) {
	slow := newFakeSlowTier()
	cache := newTestCache(slow)
	cfg := Config{EdgeTTL: time.Minute, SlowTTL: time.Minute, SWRWindow: time.Minute}

	slow.entries["k6"] = &Entry{Key: "k6", Payload: []byte("from-slow"), CachedAt: time.Now(), TTL: time.Minute, SWRWindow: time.Minute}

	var calls int32
	fetch := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("payload"), nil
	}

	result, err := cache.Lookup(context.Background(), "k6", cfg, fetch)
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if result.Source != SourceSlow {
		t.Fatalf("expected slow tier hit, got %+v", result)
	}
	if calls != 0 {
		t.Fatalf("expected no upstream fetch on slow tier hit, got %d calls", calls)
	}

	// The slow-tier hit should have populated the edge tier.
	if _, ok := cache.edge.Get("k6"); !ok {
		t.Fatal("expected slow tier hit to populate edge tier")
	}
}

type fakeSlowTier struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

func newFakeSlowTier() *fakeSlowTier {
	return &fakeSlowTier{entries: make(map[string]*Entry)}
}

func (f *fakeSlowTier) Get(ctx context.Context, key string) (*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[key], nil
}

func (f *fakeSlowTier) Set(ctx context.Context, key string, entry *Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = entry
	return nil
}

func (f *fakeSlowTier) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return nil
}
