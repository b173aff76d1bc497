package instrument

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCommander struct {
	cmds []string
	err  error
}

func (f *fakeCommander) Command(format string, a ...any) error {
	if f.err != nil {
		return f.err
	}
	f.cmds = append(f.cmds, fmt.Sprintf(format, a...))
	return nil
}

func TestYokogawaSetVolt(t *testing.T) {
	fc := &fakeCommander{}
	y := NewYokogawa7651("bias", fc)

	require.NoError(t, y.SetVolt(1.5))
	require.Equal(t, []string{"S1.500000E"}, fc.cmds)
}

func TestYokogawaVoltParam(t *testing.T) {
	fc := &fakeCommander{}
	y := NewYokogawa7651("bias", fc)

	p := y.Volt()
	require.Equal(t, "bias_volt", p.Name())
	require.NoError(t, p.Set(-0.25))
	require.Equal(t, []string{"S-0.250000E"}, fc.cmds)
}

func TestYokogawaOutputRelay(t *testing.T) {
	fc := &fakeCommander{}
	y := NewYokogawa7651("bias", fc)

	require.NoError(t, y.OutputOn())
	require.NoError(t, y.OutputOff())
	require.Equal(t, []string{"O1", "E", "O0", "E"}, fc.cmds)
}

func TestYokogawaCommandFailure(t *testing.T) {
	fc := &fakeCommander{err: errors.New("gpib timeout")}
	y := NewYokogawa7651("bias", fc)

	require.Error(t, y.SetVolt(1))
	require.Error(t, y.OutputOn())
}
