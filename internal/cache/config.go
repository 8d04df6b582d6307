package cache

import "time"

// EndpointClass distinguishes the per-endpoint-class cache policy applied
// to a request. It is a small, finite, process-wide table — new classes
// require a code change, not configuration.
type EndpointClass string

const (
	// ClassAggregated covers the dynamic, per-datacenter price aggregate.
	ClassAggregated EndpointClass = "aggregated"

	// ClassStatic covers the near-static data-center and world lists.
	ClassStatic EndpointClass = "static"
)

// Config is per-endpoint-class cache policy. EdgeTTL and SlowTTL are
// independent so the two tiers can be tuned separately.
type Config struct {
	EdgeTTL   time.Duration
	SlowTTL   time.Duration
	SWRWindow time.Duration
	KeyPrefix string
}

// DefaultConfigs is the shipped, process-wide policy table.
var DefaultConfigs = map[EndpointClass]Config{
	ClassAggregated: {
		EdgeTTL:   30 * time.Second,
		SlowTTL:   30 * time.Second,
		SWRWindow: 120 * time.Second,
		KeyPrefix: "aggregated",
	},
	ClassStatic: {
		EdgeTTL:   24 * time.Hour,
		SlowTTL:   24 * time.Hour,
		SWRWindow: 24 * time.Hour,
		KeyPrefix: "static",
	},
}
