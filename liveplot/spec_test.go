package liveplot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpecValidate(t *testing.T) {
	cases := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{"single pair", Spec{X: []string{"t"}, Y: []string{"v"}}, false},
		{"shared x", Spec{X: []string{"t"}, Y: []string{"v1", "v2"}}, false},
		{"paired xy", Spec{X: []string{"a", "b"}, Y: []string{"c", "d"}}, false},
		{"mesh", Spec{X: []string{"a"}, Y: []string{"b"}, Z: []string{"c"}}, false},
		{"no x", Spec{Y: []string{"v"}}, true},
		{"no y", Spec{X: []string{"t"}}, true},
		{"pair mismatch", Spec{X: []string{"a", "b"}, Y: []string{"c"}}, true},
		{"two z", Spec{X: []string{"a"}, Y: []string{"b"}, Z: []string{"c", "d"}}, true},
		{"mesh with two y", Spec{X: []string{"a"}, Y: []string{"b", "c"}, Z: []string{"d"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestControllerPlotValidatesEagerly(t *testing.T) {
	c := NewController()

	require.Error(t, c.Plot(Spec{X: []string{"a", "b"}, Y: []string{"c"}}))
	require.Equal(t, 0, c.NumPlots())

	require.NoError(t, c.Plot(Spec{X: []string{"t"}, Y: []string{"v"}}))
	require.Equal(t, 1, c.NumPlots())
}
