package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSlowTierAbsent is returned by lookups against a nil slow tier. Callers
// in this package treat it the same as a miss; it exists so higher layers
// can distinguish "no shared tier configured" from "checked, not found" in
// logs.
var ErrSlowTierAbsent = errors.New("slow tier not configured")

// SlowTier is the shared, optionally-absent second tier. It is
// authoritative for reach: it survives process restarts and is visible to
// every process pointed at the same backend.
type SlowTier interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry) error
	Delete(ctx context.Context, key string) error
}

type redisEntry struct {
	Payload   []byte        `json:"payload"`
	CachedAt  time.Time     `json:"cachedAt"`
	TTL       time.Duration `json:"ttl"`
	SWRWindow time.Duration `json:"swrWindow"`
}

// redisSlowTier stores entries as JSON blobs with a Redis TTL of
// ttl+swrWindow, so an entry that ages past its SWR window is reclaimed by
// Redis itself without a dedicated sweeper.
type redisSlowTier struct {
	client *redis.Client
}

// NewRedisSlowTier builds a Redis-backed slow tier. A nil client is
// accepted and produces a tier whose every operation reports
// ErrSlowTierAbsent, letting the dual-tier cache degrade to edge-only.
func NewRedisSlowTier(client *redis.Client) SlowTier {
	return &redisSlowTier{client: client}
}

func (t *redisSlowTier) Get(ctx context.Context, key string) (*Entry, error) {
	if t.client == nil {
		return nil, ErrSlowTierAbsent
	}
	data, err := t.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("slow tier get: %w", err)
	}
	var re redisEntry
	if err := json.Unmarshal(data, &re); err != nil {
		return nil, fmt.Errorf("slow tier decode: %w", err)
	}
	return &Entry{
		Key:       key,
		Payload:   re.Payload,
		CachedAt:  re.CachedAt,
		TTL:       re.TTL,
		SWRWindow: re.SWRWindow,
	}, nil
}

func (t *redisSlowTier) Set(ctx context.Context, key string, entry *Entry) error {
	if t.client == nil {
		return ErrSlowTierAbsent
	}
	re := redisEntry{
		Payload:   entry.Payload,
		CachedAt:  entry.CachedAt,
		TTL:       entry.TTL,
		SWRWindow: entry.SWRWindow,
	}
	data, err := json.Marshal(re)
	if err != nil {
		return fmt.Errorf("slow tier encode: %w", err)
	}
	ttl := entry.TTL + entry.SWRWindow
	if err := t.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("slow tier set: %w", err)
	}
	return nil
}

func (t *redisSlowTier) Delete(ctx context.Context, key string) error {
	if t.client == nil {
		return ErrSlowTierAbsent
	}
	if err := t.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("slow tier delete: %w", err)
	}
	return nil
}
