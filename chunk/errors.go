package chunk

import (
	"errors"
	"fmt"
)

// ErrChunkNotFound is returned by a Source that has no data for a coordinate.
var ErrChunkNotFound = errors.New("chunk: not found")

// ErrSuperseded means the coordinate was unloaded while its load was in
// flight, so the result was thrown away.
var ErrSuperseded = errors.New("chunk: unloaded during load")

// LoadError reports a failed fetch or parse of one chunk. The store keeps no
// record of the failure, so the coordinate can be ensured again later.
type LoadError struct {
	Coord Coord
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("chunk: load %s: %v", e.Coord.Key(), e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// SchemaError is a typed-object validation failure inside a chunk map.
type SchemaError struct {
	Coord  Coord
	Layer  string
	Object string
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: layer %q object %q: %s", e.Coord.Key(), e.Layer, e.Object, e.Reason)
	}
	return fmt.Sprintf("%s: layer %q object %q field %q: %s", e.Coord.Key(), e.Layer, e.Object, e.Field, e.Reason)
}
