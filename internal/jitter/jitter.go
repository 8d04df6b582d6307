// Package jitter provides small helpers for randomizing periodic intervals
// so piggybacked sweeps across many goroutines or processes don't
// synchronize on the same wall-clock instant.
package jitter

import (
	"math/rand"
	"time"
)

// Duration returns base randomized by ±pct (e.g. pct=0.2 for ±20%).
func Duration(base time.Duration, pct float64) time.Duration {
	if base <= 0 {
		return base
	}
	if pct <= 0 {
		return base
	}
	spread := float64(base) * pct
	offset := (rand.Float64()*2 - 1) * spread
	result := time.Duration(float64(base) + offset)
	if result < 0 {
		return 0
	}
	return result
}
