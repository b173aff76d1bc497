// Package liveplot renders live measurement plots in an isolated worker
// process. A Controller in the measurement process sends points over a
// message channel to a Renderer that owns all figure state; the two
// never share memory. The controller can request an in-memory PNG
// snapshot of the current figure at any time.
package liveplot

import (
	"errors"
	"fmt"
)

// Spec declares one subplot: paired x/y line series, or a single
// (x, y, z) mesh when Z is set. Specs are collected before the renderer
// starts and are immutable once sent.
type Spec struct {
	X []string `json:"x"`
	Y []string `json:"y"`
	Z []string `json:"z,omitempty"`
}

var (
	errNoColumns    = errors.New("a plot needs at least one x and one y column")
	errTooManyZ     = errors.New("a plot accepts at most one z column")
	errMeshArity    = errors.New("a z column requires exactly one x and one y column")
	errPairMismatch = errors.New("multiple x columns must pair one-to-one with y columns")
)

// Validate checks the column arity rules. It is called eagerly at
// registration time, before any worker process exists.
func (s Spec) Validate() error {
	if len(s.X) == 0 || len(s.Y) == 0 {
		return errNoColumns
	}
	if len(s.X) > 1 && len(s.X) != len(s.Y) {
		return fmt.Errorf("%w: %d x vs %d y", errPairMismatch, len(s.X), len(s.Y))
	}
	if len(s.Z) > 1 {
		return fmt.Errorf("%w: got %d", errTooManyZ, len(s.Z))
	}
	if len(s.Z) == 1 && (len(s.X) != 1 || len(s.Y) != 1) {
		return fmt.Errorf("%w: got %d x, %d y", errMeshArity, len(s.X), len(s.Y))
	}
	return nil
}

// Point is one observation, already resolved to string column names.
// Series whose columns are absent from a point simply skip it.
type Point map[string]float64
