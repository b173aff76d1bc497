// Package sweep orchestrates measurement runs: it loops over setpoints,
// reads followed parameters, and feeds every point identically to the
// run store (durable) and the live plotter (best-effort). Instrument
// handles are resolved to their string column names at this boundary;
// the storage and plotting layers below only ever see named values.
package sweep

// Param is anything with a resolvable column name.
type Param interface {
	Name() string
}

// Measurable is a parameter that can be read, e.g. a lock-in output.
type Measurable interface {
	Param
	Measure() (float64, error)
}

// Settable is a parameter that can be commanded to a setpoint, e.g. a
// gate voltage.
type Settable interface {
	Param
	Set(value float64) error
}

type measureFunc struct {
	name string
	fn   func() (float64, error)
}

func (m measureFunc) Name() string              { return m.name }
func (m measureFunc) Measure() (float64, error) { return m.fn() }

// MeasurableFunc wraps a read function as a named Measurable.
func MeasurableFunc(name string, fn func() (float64, error)) Measurable {
	return measureFunc{name: name, fn: fn}
}

type setFunc struct {
	name string
	fn   func(float64) error
}

func (s setFunc) Name() string            { return s.name }
func (s setFunc) Set(value float64) error { return s.fn(value) }

// SettableFunc wraps a write function as a named Settable.
func SettableFunc(name string, fn func(float64) error) Settable {
	return setFunc{name: name, fn: fn}
}

// Cols resolves a list of params to their column names.
func Cols(params ...Param) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name()
	}
	return names
}
