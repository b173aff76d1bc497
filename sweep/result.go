package sweep

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

// Result identifies a completed run and carries its final metadata.
type Result struct {
	Basedir  string
	ID       int
	Metadata map[string]any
	DataPath string
}

// Span returns n evenly spaced setpoints from start to stop inclusive.
func Span(start, stop float64, n int) []float64 {
	return floats.Span(make([]float64, n), start, stop)
}

// epochSeconds is the metadata timestamp encoding: fractional seconds
// since the Unix epoch.
func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
