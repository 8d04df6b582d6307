package upstream

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// retryConfig is an exponential-backoff-with-jitter policy applied
// uniformly to every retryable request, since this upstream exposes no
// per-error-class budget to tune against.
type retryConfig struct {
	maxAttempts       int
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
}

func defaultRetryConfig(maxAttempts int) retryConfig {
	return retryConfig{
		maxAttempts:       maxAttempts,
		initialBackoff:    250 * time.Millisecond,
		maxBackoff:        5 * time.Second,
		backoffMultiplier: 2.0,
	}
}

// withRetry runs fn, retrying transient upstream errors (network failures
// and 5xx) with jittered exponential backoff. Non-retryable classes
// (upstream 429, other 4xx) return on the first attempt.
func withRetry(ctx context.Context, cfg retryConfig, logger zerolog.Logger, fn func() ([]byte, error)) ([]byte, error) {
	var lastErr error
	backoff := cfg.initialBackoff

	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		data, err := fn()
		if err == nil {
			return data, nil
		}

		upstreamErr, ok := err.(*Error)
		if !ok || !retryable(upstreamErr) {
			return nil, err
		}
		lastErr = err

		if attempt >= cfg.maxAttempts {
			break
		}

		jittered := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		logger.Debug().
			Str("kind", string(upstreamErr.Kind)).
			Int("attempt", attempt).
			Dur("backoff", jittered).
			Msg("retrying upstream request")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during retry backoff: %w", ctx.Err())
		case <-time.After(jittered):
		}

		backoff = time.Duration(float64(backoff) * cfg.backoffMultiplier)
		if backoff > cfg.maxBackoff {
			backoff = cfg.maxBackoff
		}
	}

	return nil, lastErr
}
