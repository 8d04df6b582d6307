// Package keys builds canonical cache keys for the price-proxy endpoints.
// Normalization happens here, at the trust boundary, so the cache itself
// never has to parse or interpret a key — see the cache package's lookup
// contract.
package keys

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Aggregated builds the canonical cache key for a datacenter/world plus a
// set of item ids. The datacenter is case-folded and the ids are sorted
// ascending so that [3,1,2] and [1,2,3] collide in the cache.
func Aggregated(datacenter string, ids []int) string {
	dc := strings.ToLower(datacenter)

	sorted := make([]int, len(ids))
	copy(sorted, ids)
	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}

	return fmt.Sprintf("aggregated:%s:%s", dc, strings.Join(parts, ","))
}

// DataCenters is the fixed cache key for the data-center list endpoint.
func DataCenters() string {
	return "data-centers:all"
}

// Worlds is the fixed cache key for the world list endpoint.
func Worlds() string {
	return "worlds:all"
}
