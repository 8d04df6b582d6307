package coalescer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inFlightGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "proxy_coalescer_inflight",
		Help: "Current number of in-flight coalesced fetches across all shards",
	})

	joinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proxy_coalescer_joins_total",
		Help: "Total callers that attached to an already in-flight fetch instead of starting one",
	})
)
