package registry

import "github.com/oklog/ulid/v2"

const (
	mappingPrefix              = "mapping"
	arrayMappingPrefix         = "array-mapping"
	arrayToObjectMappingPrefix = "ato-mapping"
	defaultValuePrefix         = "default"
)

// IDGenerator returns a new unique id for the given prefix.
type IDGenerator func(prefix string) string

// NewULID returns ids of the form `<prefix>-<ULID>`.
func NewULID(prefix string) string {
	return prefix + "-" + ulid.Make().String()
}
