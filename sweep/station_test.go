package sweep

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sweepgo/sweepgo/rundb"
)

// counterParam reads 10, 11, 12, ... on successive measurements.
func counterParam(name string) Measurable {
	n := 0
	return MeasurableFunc(name, func() (float64, error) {
		n++
		return float64(9 + n), nil
	})
}

// recordingSettable remembers every setpoint it was commanded to.
type recordingSettable struct {
	name string
	got  []float64
	err  error
}

func (r *recordingSettable) Name() string { return r.name }
func (r *recordingSettable) Set(v float64) error {
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, v)
	return nil
}

func TestNewStationNeedsBasedir(t *testing.T) {
	_, err := NewStation("")
	require.Error(t, err)
}

func TestMeasure(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStation(dir)
	require.NoError(t, err)
	s.FollowParam(counterParam("lockin_x"), 10)
	s.AddComment("cooldown 12")

	res, err := s.Measure()
	require.NoError(t, err)
	require.Equal(t, 0, res.ID)

	r, err := rundb.OpenReader(dir, res.ID)
	require.NoError(t, err)
	md := r.Metadata()
	require.Equal(t, "0D", md["type"])
	require.Equal(t, []any{"cooldown 12"}, md["comments"])
	require.Equal(t, []any{"time", "lockin_x"}, md["columns"])

	rows, err := r.AllRows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[0], 2)
	// First reading is 10, gain 10.
	require.Equal(t, "1", rows[0][1])
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStation(dir)
	require.NoError(t, err)
	s.FollowParam(counterParam("lockin_x"), 1)

	gate := &recordingSettable{name: "gate_volt"}
	setpoints := Span(0, 1, 3)

	res, err := s.Sweep(gate, setpoints, 0)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0.5, 1}, gate.got)

	r, err := rundb.OpenReader(dir, res.ID)
	require.NoError(t, err)
	md := r.Metadata()
	require.Equal(t, "1D", md["type"])
	require.Equal(t, "gate_volt", md["param"])
	require.Equal(t, []any{0.0, 0.5, 1.0}, md["setpoints"])
	require.Equal(t, []any{"time", "gate_volt", "lockin_x"}, md["columns"])
	require.Equal(t, false, md["interrupted"])
	require.Contains(t, md, "start_time")
	require.Contains(t, md, "end_time")

	rows, err := r.AllRows()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, row := range rows {
		require.Len(t, row, 3)
		sp, err := strconv.ParseFloat(row[1], 64)
		require.NoError(t, err)
		require.Equal(t, setpoints[i], sp)
		require.Equal(t, strconv.Itoa(10+i), row[2])
	}
}

func TestSweepSetFailure(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStation(dir)
	require.NoError(t, err)

	gate := &recordingSettable{name: "gate_volt", err: errors.New("instrument offline")}
	res, err := s.Sweep(gate, []float64{0, 1}, 0)
	require.Error(t, err)

	// The run is still finalized so the partial record survives.
	r, err := rundb.OpenReader(dir, res.ID)
	require.NoError(t, err)
	rows, err := r.AllRows()
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStation(dir)
	require.NoError(t, err)
	s.FollowParam(counterParam("temp"), 1)

	res, err := s.Watch(time.Millisecond, 20*time.Millisecond)
	require.NoError(t, err)

	r, err := rundb.OpenReader(dir, res.ID)
	require.NoError(t, err)
	md := r.Metadata()
	require.Equal(t, "1D", md["type"])
	require.Nil(t, md["param"])
	require.Contains(t, md, "max_duration")

	rows, err := r.AllRows()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	require.Len(t, rows[0], 2)
}

func TestWatchForeverMetadata(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStation(dir)
	require.NoError(t, err)

	// A zero max duration would loop forever; interrupt via a before
	// hook error after the first point instead.
	calls := 0
	s.RunBefore(func() error {
		calls++
		if calls > 1 {
			return errors.New("stop now")
		}
		return nil
	})

	res, err := s.Watch(time.Millisecond, 0)
	require.Error(t, err)

	r, err := rundb.OpenReader(dir, res.ID)
	require.NoError(t, err)
	require.Nil(t, r.Metadata()["max_duration"])
}

func TestMultisweep(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStation(dir)
	require.NoError(t, err)
	s.FollowParam(counterParam("lockin_x"), 1)

	a := &recordingSettable{name: "gate_a"}
	b := &recordingSettable{name: "gate_b"}

	res, err := s.Multisweep(
		[]Settable{a, b},
		[][]float64{{0, 1}, {10, 11}},
		0,
	)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1}, a.got)
	require.Equal(t, []float64{10, 11}, b.got)

	r, err := rundb.OpenReader(dir, res.ID)
	require.NoError(t, err)
	md := r.Metadata()
	require.Equal(t, []any{"gate_a", "gate_b"}, md["param"])
	require.Equal(t, []any{"time", "gate_a", "gate_b", "lockin_x"}, md["columns"])

	rows, err := r.AllRows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "0", rows[0][1])
	require.Equal(t, "10", rows[0][2])
}

func TestMultisweepLengthMismatch(t *testing.T) {
	s, err := NewStation(t.TempDir())
	require.NoError(t, err)

	a := &recordingSettable{name: "gate_a"}
	b := &recordingSettable{name: "gate_b"}

	_, err = s.Multisweep([]Settable{a, b}, [][]float64{{0, 1}}, 0)
	require.ErrorIs(t, err, errLengthMismatch)

	_, err = s.Multisweep([]Settable{a, b}, [][]float64{{0, 1}, {0}}, 0)
	require.ErrorIs(t, err, errLengthMismatch)
}

func TestMegasweep(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStation(dir)
	require.NoError(t, err)
	s.FollowParam(counterParam("lockin_x"), 1)

	slow := &recordingSettable{name: "field"}
	fast := &recordingSettable{name: "gate_volt"}

	res, err := s.Megasweep(slow, []float64{0, 1}, fast, []float64{5, 6, 7}, 0, 0)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1}, slow.got)
	require.Equal(t, []float64{5, 6, 7, 5, 6, 7}, fast.got)

	r, err := rundb.OpenReader(dir, res.ID)
	require.NoError(t, err)
	md := r.Metadata()
	require.Equal(t, "2D", md["type"])
	require.Equal(t, "field", md["slow_param"])
	require.Equal(t, "gate_volt", md["fast_param"])
	require.Equal(t, []any{"time", "field", "gate_volt", "lockin_x"}, md["columns"])

	rows, err := r.AllRows()
	require.NoError(t, err)
	require.Len(t, rows, 6)
	// Fast axis cycles within each slow step.
	require.Equal(t, []string{"0", "5"}, rows[0][1:3])
	require.Equal(t, []string{"0", "7"}, rows[2][1:3])
	require.Equal(t, []string{"1", "5"}, rows[3][1:3])
}

func TestMultimegasweep(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStation(dir)
	require.NoError(t, err)
	s.FollowParam(counterParam("lockin_x"), 1)

	slowA := &recordingSettable{name: "field_x"}
	slowB := &recordingSettable{name: "field_y"}
	fastA := &recordingSettable{name: "gate_a"}
	fastB := &recordingSettable{name: "gate_b"}

	res, err := s.Multimegasweep(
		[]Settable{slowA, slowB}, [][]float64{{0, 1}, {10, 11}},
		[]Settable{fastA, fastB}, [][]float64{{5, 6}, {50, 60}},
		0, 0,
	)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1}, slowA.got)
	require.Equal(t, []float64{10, 11}, slowB.got)
	// Fast axis repeats for every slow step.
	require.Equal(t, []float64{5, 6, 5, 6}, fastA.got)
	require.Equal(t, []float64{50, 60, 50, 60}, fastB.got)

	r, err := rundb.OpenReader(dir, res.ID)
	require.NoError(t, err)
	md := r.Metadata()
	require.Equal(t, "2D", md["type"])
	require.Equal(t, []any{"field_x", "field_y"}, md["slow_param"])
	require.Equal(t, []any{"gate_a", "gate_b"}, md["fast_param"])
	require.Equal(t,
		[]any{"time", "field_x", "field_y", "gate_a", "gate_b", "lockin_x"},
		md["columns"])
	require.Equal(t, []any{[]any{0.0, 1.0}, []any{10.0, 11.0}}, md["slow_setpoints"])

	rows, err := r.AllRows()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, []string{"0", "10", "5", "50"}, rows[0][1:5])
	require.Equal(t, []string{"0", "10", "6", "60"}, rows[1][1:5])
	require.Equal(t, []string{"1", "11", "5", "50"}, rows[2][1:5])
}

func TestMultimegasweepLengthMismatch(t *testing.T) {
	s, err := NewStation(t.TempDir())
	require.NoError(t, err)

	slow := &recordingSettable{name: "field"}
	fast := &recordingSettable{name: "gate"}

	_, err = s.Multimegasweep(
		[]Settable{slow}, [][]float64{{0, 1}},
		[]Settable{fast}, [][]float64{},
		0, 0,
	)
	require.ErrorIs(t, err, errLengthMismatch)

	_, err = s.Multimegasweep(
		[]Settable{slow}, [][]float64{{0}, {1}},
		[]Settable{fast}, [][]float64{{5}},
		0, 0,
	)
	require.ErrorIs(t, err, errLengthMismatch)
}

func TestHooksRunPerPoint(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStation(dir)
	require.NoError(t, err)

	befores, afters := 0, 0
	s.RunBefore(func() error { befores++; return nil })
	s.RunAfter(func() error { afters++; return nil })

	gate := &recordingSettable{name: "gate_volt"}
	_, err = s.Sweep(gate, []float64{0, 1, 2}, 0)
	require.NoError(t, err)
	require.Equal(t, 3, befores)
	require.Equal(t, 3, afters)
}

func TestSpan(t *testing.T) {
	require.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, Span(0, 1, 5))
	require.Equal(t, []float64{1, 0, -1}, Span(1, -1, 3))
}
