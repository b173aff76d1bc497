//go:build !windows

package sweep

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sweepgo/sweepgo/rundb"
)

func TestInterruptRegionLatches(t *testing.T) {
	r := notifyInterrupt()
	defer r.Close()

	require.False(t, r.Requested())

	// The region has SIGINT captured, so signalling ourselves is safe.
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))

	require.Eventually(t, r.Requested, 5*time.Second, time.Millisecond)
	// Once tripped it stays tripped.
	require.True(t, r.Requested())
}

func TestSweepInterruptMarksRun(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStation(dir)
	require.NoError(t, err)

	// Trip the interrupt from a hook so it lands mid-run, after the
	// first point is recorded. The short sleep lets the asynchronous
	// signal delivery complete before the loop checks the flag.
	s.RunBefore(func() error {
		if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
			return err
		}
		time.Sleep(100 * time.Millisecond)
		return nil
	})

	gate := &recordingSettable{name: "gate_volt"}
	res, err := s.Sweep(gate, []float64{0, 1, 2}, 0)
	require.NoError(t, err)
	require.Equal(t, true, res.Metadata["interrupted"])

	// The run drained to a normal close: data and metadata are intact
	// and only the points before the interrupt exist.
	r, err := rundb.OpenReader(dir, res.ID)
	require.NoError(t, err)
	require.Equal(t, true, r.Metadata()["interrupted"])
	rows, err := r.AllRows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
