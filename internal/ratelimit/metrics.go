package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	admitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proxy_ratelimit_admits_total",
		Help: "Total requests admitted by the sliding-window limiter",
	})

	deniesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proxy_ratelimit_denies_total",
		Help: "Total requests denied by the sliding-window limiter",
	})

	ledgerGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "proxy_ratelimit_ledgers",
		Help: "Current number of tracked rate-limit identifiers",
	})
)
