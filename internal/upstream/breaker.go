package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	breakerBudgetRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "proxy_upstream_breaker_budget_remaining",
		Help: "Remaining upstream error budget before the shared breaker blocks requests",
	})

	breakerBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proxy_upstream_breaker_blocks_total",
		Help: "Total requests blocked by the shared upstream breaker",
	})

	breakerThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proxy_upstream_breaker_throttles_total",
		Help: "Total requests throttled by the shared upstream breaker",
	})
)

const (
	breakerRedisKey = "universalis-proxy:upstream:budget"

	// budgetCeiling is the healthy budget every 429 draws down from and
	// every window reset restores.
	budgetCeiling = 50

	// budgetDrain is how much a single upstream 429 costs.
	budgetDrain = 10

	budgetThresholdCritical = 5
	budgetThresholdWarning  = 20

	budgetWindow = time.Minute
)

// budgetState is the shared, cross-process view of how much headroom the
// proxy fleet has left before the upstream API itself starts rate limiting
// it. It complements the per-request retry backoff in retry.go: retry
// handles one caller's single request, the breaker protects every process
// pointed at the same upstream from piling on during a shared 429 event.
type budgetState struct {
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

func (s budgetState) needsBlock() bool    { return s.Remaining < budgetThresholdCritical }
func (s budgetState) needsThrottle() bool { return s.Remaining < budgetThresholdWarning && !s.needsBlock() }

// Breaker gates outgoing upstream requests using a Redis-shared error
// budget, decremented on every upstream 429 and replenished once the window
// rolls over. A nil client degrades Allow to always-true: the breaker is
// best-effort backpressure, never a hard dependency for correctness.
type Breaker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewBreaker builds a Breaker. client may be nil to disable it.
func NewBreaker(client *redis.Client, logger zerolog.Logger) *Breaker {
	return &Breaker{redis: client, logger: logger}
}

// Allow reports whether a request may proceed. It blocks outright when the
// shared budget is critical, and sleeps briefly when it is merely low, so a
// cluster of proxy instances backs off together instead of independently
// hammering an upstream that is already rate limiting them.
func (b *Breaker) Allow(ctx context.Context) bool {
	if b.redis == nil {
		return true
	}

	state, err := b.get(ctx)
	if err != nil {
		b.logger.Debug().Err(err).Msg("breaker state unavailable, defaulting to allow")
		return true
	}

	if state.needsBlock() {
		breakerBlocksTotal.Inc()
		b.logger.Warn().Int("remaining", state.Remaining).Msg("upstream breaker open, blocking request")
		return false
	}
	if state.needsThrottle() {
		breakerThrottlesTotal.Inc()
		select {
		case <-time.After(250 * time.Millisecond):
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// RecordRateLimited draws down the shared budget after an upstream 429.
func (b *Breaker) RecordRateLimited(ctx context.Context) {
	if b.redis == nil {
		return
	}
	state, err := b.get(ctx)
	if err != nil {
		state = budgetState{Remaining: budgetCeiling, ResetAt: time.Now().Add(budgetWindow)}
	}
	state.Remaining -= budgetDrain
	if state.Remaining < 0 {
		state.Remaining = 0
	}
	if err := b.set(ctx, state); err != nil {
		b.logger.Debug().Err(err).Msg("failed to persist breaker state")
	}
	breakerBudgetRemaining.Set(float64(state.Remaining))
}

func (b *Breaker) get(ctx context.Context) (budgetState, error) {
	now := time.Now()
	data, err := b.redis.Get(ctx, breakerRedisKey).Result()
	if err == redis.Nil {
		return budgetState{Remaining: budgetCeiling, ResetAt: now.Add(budgetWindow)}, nil
	}
	if err != nil {
		return budgetState{}, fmt.Errorf("breaker get: %w", err)
	}

	var state budgetState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return budgetState{}, fmt.Errorf("breaker decode: %w", err)
	}
	if now.After(state.ResetAt) {
		state = budgetState{Remaining: budgetCeiling, ResetAt: now.Add(budgetWindow)}
	}
	return state, nil
}

func (b *Breaker) set(ctx context.Context, state budgetState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("breaker encode: %w", err)
	}
	if err := b.redis.Set(ctx, breakerRedisKey, data, budgetWindow).Err(); err != nil {
		return fmt.Errorf("breaker set: %w", err)
	}
	return nil
}
