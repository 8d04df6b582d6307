// Package metrics provides the centralized Prometheus registry reference
// for the proxy. All metrics are defined in their respective packages
// (cache, coalescer, ratelimit, upstream) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the proxy. All
// metrics are automatically registered via promauto in their respective
// packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (internal/cache):
//   - proxy_cache_lookups_total{source, stale} (Counter): Lookups by tier and staleness
//   - proxy_cache_revalidations_total{outcome} (Counter): Background revalidation outcomes
//   - proxy_cache_tier_write_errors_total{tier} (Counter): Tier write failures
//
// Coalescer Metrics (internal/coalescer):
//   - proxy_coalescer_inflight (Gauge): Current in-flight coalesced fetches
//   - proxy_coalescer_joins_total (Counter): Callers that joined an existing in-flight fetch
//
// Rate Limit Metrics (internal/ratelimit):
//   - proxy_ratelimit_admits_total (Counter): Requests admitted by the sliding-window limiter
//   - proxy_ratelimit_denies_total (Counter): Requests denied by the sliding-window limiter
//   - proxy_ratelimit_ledgers (Gauge): Current number of tracked rate-limit identifiers
//
// Upstream Metrics (internal/upstream):
//   - proxy_upstream_requests_total{endpoint, outcome} (Counter): Requests by endpoint and outcome
//   - proxy_upstream_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - proxy_upstream_breaker_budget_remaining (Gauge): Shared error budget left before the breaker opens
//   - proxy_upstream_breaker_blocks_total (Counter): Requests blocked by the shared breaker
//   - proxy_upstream_breaker_throttles_total (Counter): Requests throttled by the shared breaker
//
// Example Prometheus Queries:
//
//   # Cache hit rate (any tier, fresh or stale)
//   1 - (sum(rate(proxy_cache_lookups_total{source="upstream"}[5m])) /
//        sum(rate(proxy_cache_lookups_total[5m])))
//
//   # Stale-serve rate
//   sum(rate(proxy_cache_lookups_total{stale="true"}[5m])) /
//   sum(rate(proxy_cache_lookups_total[5m]))
//
//   # Rate limit denial rate
//   rate(proxy_ratelimit_denies_total[5m])
//
//   # P95 upstream latency
//   histogram_quantile(0.95, rate(proxy_upstream_request_duration_seconds_bucket[5m]))
