package registry

import "encoding/json"

// canonical returns v in the form it decodes back to from JSON: numbers
// become float64 and filter groups carry non-nil children. Values that do not
// survive encoding are returned unchanged.
func canonical[T any](v T) T {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
