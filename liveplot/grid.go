package liveplot

// This file contains the 2D mesh series: accumulated scattered (x, y, z)
// triples and their interpolation onto a regular grid for heat-map
// display. Until both axes carry at least two distinct values the series
// degrades gracefully: a plain line against the varying axis, or nothing
// at all.

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// maxGridRes caps the interpolation grid resolution per axis.
const maxGridRes = 64

type meshMode int

const (
	meshModeNone meshMode = iota
	meshModeLineX
	meshModeLineY
	meshModeGrid
)

type meshSeries struct {
	x, y, z string
	xs, ys  []float64
	zs      []float64
}

func (m *meshSeries) mode() meshMode {
	nx := distinctCount(m.xs)
	ny := distinctCount(m.ys)
	switch {
	case nx >= 2 && ny >= 2:
		return meshModeGrid
	case nx >= 2:
		return meshModeLineX
	case ny >= 2:
		return meshModeLineY
	default:
		return meshModeNone
	}
}

// grid interpolates the scattered triples onto a regular grid using
// inverse-distance weighting. Distances are measured in axis-normalized
// space so wildly different x and y scales weigh equally.
func (m *meshSeries) grid() *meshGrid {
	nx := clampRes(distinctCount(m.xs))
	ny := clampRes(distinctCount(m.ys))

	xmin, xmax := floats.Min(m.xs), floats.Max(m.xs)
	ymin, ymax := floats.Min(m.ys), floats.Max(m.ys)

	g := &meshGrid{
		xs: floats.Span(make([]float64, nx), xmin, xmax),
		ys: floats.Span(make([]float64, ny), ymin, ymax),
		zs: make([]float64, nx*ny),
		nx: nx,
	}

	xscale := xmax - xmin
	yscale := ymax - ymin
	for j, gy := range g.ys {
		for i, gx := range g.xs {
			g.zs[j*nx+i] = m.idw(gx, gy, xscale, yscale)
		}
	}
	return g
}

// idw computes the inverse-distance-squared weighted value at (gx, gy).
// A sample landing on the node exactly wins outright.
func (m *meshSeries) idw(gx, gy, xscale, yscale float64) float64 {
	var num, den float64
	for k := range m.xs {
		dx := (m.xs[k] - gx) / xscale
		dy := (m.ys[k] - gy) / yscale
		d2 := dx*dx + dy*dy
		if d2 == 0 {
			return m.zs[k]
		}
		w := 1 / d2
		num += w * m.zs[k]
		den += w
	}
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

func clampRes(n int) int {
	if n < 2 {
		return 2
	}
	if n > maxGridRes {
		return maxGridRes
	}
	return n
}

func distinctCount(vals []float64) int {
	seen := make(map[float64]struct{}, len(vals))
	for _, v := range vals {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// meshGrid is a regular grid satisfying gonum/plot's GridXYZ.
type meshGrid struct {
	xs, ys []float64
	zs     []float64
	nx     int
}

func (g *meshGrid) Dims() (c, r int)   { return len(g.xs), len(g.ys) }
func (g *meshGrid) X(c int) float64    { return g.xs[c] }
func (g *meshGrid) Y(r int) float64    { return g.ys[r] }
func (g *meshGrid) Z(c, r int) float64 { return g.zs[r*g.nx+c] }
