package httpapi

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	minItemIDs = 1
	maxItemIDs = 100
	minItemID  = 1
	maxItemID  = 1_000_000
)

// datacenters is the case-insensitive whitelist of names accepted in the
// datacenter path parameter. It lists datacenter names only; world names
// are not in it and are rejected.
var datacenters = map[string]bool{
	"aether":    true,
	"primal":    true,
	"crystal":   true,
	"dynamis":   true,
	"chaos":     true,
	"light":     true,
	"materia":   true,
	"elemental": true,
	"gaia":      true,
	"mana":      true,
	"meteor":    true,
}

// validationError is a 400-class failure describing offending input.
type validationError struct {
	Message   string
	Offending []string
}

func (e *validationError) Error() string {
	return e.Message
}

// validateDatacenter checks name against the whitelist, case-insensitively.
func validateDatacenter(name string) (string, *validationError) {
	lower := strings.ToLower(name)
	if !datacenters[lower] {
		return "", &validationError{
			Message:   "unknown datacenter or world",
			Offending: []string{name},
		}
	}
	return lower, nil
}

// validateItemIDs parses a comma-separated id list, enforcing count and
// range bounds. It does not sort — that is keys.Aggregated's job once the
// ids are known valid. Duplicate ids are kept.
func validateItemIDs(raw string) ([]int, *validationError) {
	if raw == "" {
		return nil, &validationError{Message: "itemIds must not be empty"}
	}

	parts := strings.Split(raw, ",")
	if len(parts) < minItemIDs || len(parts) > maxItemIDs {
		return nil, &validationError{
			Message: fmt.Sprintf("itemIds must contain between %d and %d ids", minItemIDs, maxItemIDs),
		}
	}

	ids := make([]int, 0, len(parts))
	var offending []string
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || id < minItemID || id > maxItemID {
			offending = append(offending, p)
			continue
		}
		ids = append(ids, id)
	}

	if len(offending) > 0 {
		if len(offending) > 10 {
			offending = offending[:10]
		}
		return nil, &validationError{
			Message:   fmt.Sprintf("itemIds must each be integers in [%d, %d]", minItemID, maxItemID),
			Offending: offending,
		}
	}

	return ids, nil
}
