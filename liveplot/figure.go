package liveplot

// This file contains the renderer's figure state: buffered series
// coordinates per subplot, grid layout (at most 4 columns), and PNG
// export of the whole figure.

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	maxGridCols = 4
	subplotSize = 4 * vg.Inch
)

type lineSeries struct {
	x, y string
	pts  plotter.XYs
}

type subplot struct {
	spec  Spec
	lines []*lineSeries
	mesh  *meshSeries
}

type figure struct {
	subplots []*subplot
}

func newFigure(specs []Spec) *figure {
	f := &figure{}
	for _, s := range specs {
		sp := &subplot{spec: s}
		if len(s.Z) == 1 {
			sp.mesh = &meshSeries{x: s.X[0], y: s.Y[0], z: s.Z[0]}
		} else {
			for i, y := range s.Y {
				x := s.X[0]
				if len(s.X) > 1 {
					x = s.X[i]
				}
				sp.lines = append(sp.lines, &lineSeries{x: x, y: y})
			}
		}
		f.subplots = append(f.subplots, sp)
	}
	return f
}

// addPoints appends each point to every series whose columns it carries.
// A point missing a series' column skips that series only.
func (f *figure) addPoints(points []Point) {
	for _, p := range points {
		for _, sp := range f.subplots {
			for _, l := range sp.lines {
				vx, okx := p[l.x]
				vy, oky := p[l.y]
				if !okx || !oky {
					continue
				}
				l.pts = append(l.pts, plotter.XY{X: vx, Y: vy})
			}
			if m := sp.mesh; m != nil {
				vx, okx := p[m.x]
				vy, oky := p[m.y]
				vz, okz := p[m.z]
				if !okx || !oky || !okz {
					continue
				}
				m.xs = append(m.xs, vx)
				m.ys = append(m.ys, vy)
				m.zs = append(m.zs, vz)
			}
		}
	}
}

// renderPNG draws every subplot into a tiled canvas and returns the
// whole figure as PNG bytes.
func (f *figure) renderPNG() ([]byte, error) {
	n := len(f.subplots)
	if n == 0 {
		return nil, fmt.Errorf("figure has no subplots")
	}
	cols := n
	if cols > maxGridCols {
		cols = maxGridCols
	}
	rows := (n + maxGridCols - 1) / maxGridCols

	plots := make([][]*plot.Plot, rows)
	for r := range plots {
		plots[r] = make([]*plot.Plot, cols)
	}
	for i, sp := range f.subplots {
		p, err := sp.draw()
		if err != nil {
			return nil, err
		}
		plots[i/maxGridCols][i%maxGridCols] = p
	}

	img := vgimg.New(vg.Length(cols)*subplotSize, vg.Length(rows)*subplotSize)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows,
		Cols: cols,
		PadX: vg.Millimeter * 2,
		PadY: vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if plots[r][c] != nil {
				plots[r][c].Draw(canvases[r][c])
			}
		}
	}

	var buf bytes.Buffer
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode figure: %w", err)
	}
	return buf.Bytes(), nil
}

func (sp *subplot) draw() (*plot.Plot, error) {
	if sp.mesh != nil {
		return sp.mesh.draw()
	}

	p := plot.New()
	p.X.Label.Text = sp.lines[0].x

	drew := false
	for _, l := range sp.lines {
		if len(l.pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(l.pts)
		if err != nil {
			return nil, fmt.Errorf("failed to build line series %s: %w", l.y, err)
		}
		p.Add(line)
		if len(sp.lines) > 1 {
			p.Legend.Add(l.y, line)
		}
		drew = true
	}
	if len(sp.lines) == 1 {
		p.Y.Label.Text = sp.lines[0].y
	}
	if !drew {
		clampEmptyAxes(p)
	}
	return p, nil
}

func (m *meshSeries) draw() (*plot.Plot, error) {
	p := plot.New()

	switch m.mode() {
	case meshModeGrid:
		p.X.Label.Text = m.x
		p.Y.Label.Text = m.y
		h := plotter.NewHeatMap(m.grid(), palette.Heat(32, 1))
		p.Add(h)
	case meshModeLineX:
		// Only x varies; show z against it.
		p.X.Label.Text = m.x
		p.Y.Label.Text = m.z
		line, err := plotter.NewLine(zipXYs(m.xs, m.zs))
		if err != nil {
			return nil, fmt.Errorf("failed to build fallback line for %s: %w", m.z, err)
		}
		p.Add(line)
	case meshModeLineY:
		p.X.Label.Text = m.y
		p.Y.Label.Text = m.z
		line, err := plotter.NewLine(zipXYs(m.ys, m.zs))
		if err != nil {
			return nil, fmt.Errorf("failed to build fallback line for %s: %w", m.z, err)
		}
		p.Add(line)
	default:
		// Not enough distinct values on either axis yet.
		p.X.Label.Text = m.x
		p.Y.Label.Text = m.y
		clampEmptyAxes(p)
	}
	return p, nil
}

func zipXYs(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return pts
}

// clampEmptyAxes pins a dataless plot to a unit range so axis layout has
// something finite to work with.
func clampEmptyAxes(p *plot.Plot) {
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
}
