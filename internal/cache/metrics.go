package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// lookupsTotal counts every lookup by the tier that answered it and
	// whether the answer was stale.
	lookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_cache_lookups_total",
			Help: "Total cache lookups by resulting source and staleness",
		},
		[]string{"source", "stale"},
	)

	// revalidationsTotal counts background revalidations by outcome.
	revalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_cache_revalidations_total",
			Help: "Total background revalidations by outcome",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	tierWriteErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_cache_tier_write_errors_total",
			Help: "Total cache tier write failures by tier",
		},
		[]string{"tier"}, // "edge", "slow"
	)
)
