package liveplot

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFigureSkipsPointsMissingColumns(t *testing.T) {
	f := newFigure([]Spec{{X: []string{"t"}, Y: []string{"v"}}})

	f.addPoints([]Point{
		{"t": 0, "v": 1},
		{"t": 1},           // missing y, skipped
		{"v": 2},           // missing x, skipped
		{"t": 2, "v": 3, "extra": 9},
	})

	require.Len(t, f.subplots[0].lines[0].pts, 2)
}

func TestFigurePairedAxes(t *testing.T) {
	f := newFigure([]Spec{{X: []string{"a", "b"}, Y: []string{"c", "d"}}})

	sp := f.subplots[0]
	require.Len(t, sp.lines, 2)
	require.Equal(t, "a", sp.lines[0].x)
	require.Equal(t, "c", sp.lines[0].y)
	require.Equal(t, "b", sp.lines[1].x)
	require.Equal(t, "d", sp.lines[1].y)
}

func TestMeshModes(t *testing.T) {
	m := &meshSeries{x: "a", y: "b", z: "c"}
	require.Equal(t, meshModeNone, m.mode())

	m.xs, m.ys, m.zs = []float64{0, 0}, []float64{1, 1}, []float64{5, 5}
	require.Equal(t, meshModeNone, m.mode())

	m.xs = []float64{0, 1}
	require.Equal(t, meshModeLineX, m.mode())

	m.xs = []float64{0, 0}
	m.ys = []float64{1, 2}
	require.Equal(t, meshModeLineY, m.mode())

	m.xs = []float64{0, 1}
	require.Equal(t, meshModeGrid, m.mode())
}

func TestMeshGridHitsSamples(t *testing.T) {
	// Samples on the four corners of a unit square; the interpolated
	// grid must reproduce them exactly at the corner nodes.
	m := &meshSeries{
		xs: []float64{0, 1, 0, 1},
		ys: []float64{0, 0, 1, 1},
		zs: []float64{10, 20, 30, 40},
	}
	g := m.grid()

	c, r := g.Dims()
	require.Equal(t, 2, c)
	require.Equal(t, 2, r)
	require.Equal(t, 10.0, g.Z(0, 0))
	require.Equal(t, 20.0, g.Z(1, 0))
	require.Equal(t, 30.0, g.Z(0, 1))
	require.Equal(t, 40.0, g.Z(1, 1))
}

func TestFigureRenderPNG(t *testing.T) {
	f := newFigure([]Spec{
		{X: []string{"t"}, Y: []string{"v"}},
		{X: []string{"a"}, Y: []string{"b"}, Z: []string{"c"}},
	})
	f.addPoints([]Point{
		{"t": 0, "v": 1, "a": 0, "b": 0, "c": 10},
		{"t": 1, "v": 2, "a": 1, "b": 0, "c": 20},
		{"t": 2, "v": 1, "a": 0, "b": 1, "c": 30},
		{"t": 3, "v": 3, "a": 1, "b": 1, "c": 40},
		{"t": 4, "v": 2, "a": 0.5, "b": 0.5, "c": 25},
	})

	data, err := f.renderPNG()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Positive(t, img.Bounds().Dx())
}

func TestFigureRenderEmpty(t *testing.T) {
	// A figure that never received a point must still render.
	f := newFigure([]Spec{
		{X: []string{"t"}, Y: []string{"v1", "v2"}},
		{X: []string{"a"}, Y: []string{"b"}, Z: []string{"c"}},
	})

	data, err := f.renderPNG()
	require.NoError(t, err)

	_, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
}
