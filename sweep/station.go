package sweep

// This file contains the Station: a collection of followed parameters
// and the run loops over them. Supported shapes are Measure (a single
// 0D point), Watch (1D over time), Sweep (1D over one parameter),
// Multisweep (1D over several parameters in lockstep) and Megasweep
// (2D, slow and fast axes). Every loop writes each point to the run
// store and the plotter identically, honors the scoped interrupt, and
// finishes with the same drain: end_time, final plot image as a blob,
// plotter stop, store close.

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/sweepgo/sweepgo/liveplot"
	"github.com/sweepgo/sweepgo/rundb"
)

var errLengthMismatch = errors.New("setpoint lists must all have the same length")

type followedParam struct {
	param Measurable
	gain  float64
}

// Station is a collection of parameters that can be measured together.
// The base directory is explicit; there is no process-wide default.
type Station struct {
	basedir string
	logger  zerolog.Logger

	params   []followedParam
	comments []string
	befores  []func() error
	afters   []func() error

	plotter *liveplot.Controller
}

// StationOption configures a Station.
type StationOption func(*Station)

// WithLogger attaches a logger for run progress. The default discards.
func WithLogger(logger zerolog.Logger) StationOption {
	return func(s *Station) { s.logger = logger }
}

// WithImageTimeout overrides how long the final snapshot request may
// block before the run closes without an embedded image.
func WithImageTimeout(d time.Duration) StationOption {
	return func(s *Station) {
		s.plotter = liveplot.NewController(
			liveplot.WithControllerLogger(s.logger),
			liveplot.WithImageTimeout(d),
		)
	}
}

// NewStation creates a Station writing runs under basedir.
func NewStation(basedir string, opts ...StationOption) (*Station, error) {
	if basedir == "" {
		return nil, errors.New("station needs an explicit base directory")
	}
	s := &Station{
		basedir: basedir,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.plotter == nil {
		s.plotter = liveplot.NewController(liveplot.WithControllerLogger(s.logger))
	}
	return s, nil
}

// FollowParam adds a parameter to be read at every point. The measured
// value is divided by gain before storage.
func (s *Station) FollowParam(p Measurable, gain float64) *Station {
	s.params = append(s.params, followedParam{param: p, gain: gain})
	return s
}

// AddComment attaches a free-form comment saved in every run's metadata.
func (s *Station) AddComment(comment string) {
	s.comments = append(s.comments, comment)
}

// RunBefore registers a hook executed before each point is measured.
func (s *Station) RunBefore(fn func() error) {
	s.befores = append(s.befores, fn)
}

// RunAfter registers a hook executed after each point is recorded.
func (s *Station) RunAfter(fn func() error) {
	s.afters = append(s.afters, fn)
}

// Plot registers a subplot for the live renderer. The spec is validated
// immediately; the renderer process only starts when a run begins and at
// least one plot is registered.
func (s *Station) Plot(spec liveplot.Spec) error {
	return s.plotter.Plot(spec)
}

func (s *Station) measure() ([]float64, error) {
	vals := make([]float64, len(s.params))
	for i, fp := range s.params {
		v, err := fp.param.Measure()
		if err != nil {
			return nil, fmt.Errorf("failed to measure %s: %w", fp.param.Name(), err)
		}
		vals[i] = v / fp.gain
	}
	return vals, nil
}

func (s *Station) colNames() []string {
	names := make([]string, len(s.params))
	for i, fp := range s.params {
		names[i] = fp.param.Name()
	}
	return names
}

func (s *Station) runBefores() error {
	for _, fn := range s.befores {
		if err := fn(); err != nil {
			return fmt.Errorf("run-before hook failed: %w", err)
		}
	}
	return nil
}

func (s *Station) runAfters() error {
	for _, fn := range s.afters {
		if err := fn(); err != nil {
			return fmt.Errorf("run-after hook failed: %w", err)
		}
	}
	return nil
}

// Measure records a single 0D point.
func (s *Station) Measure() (Result, error) {
	w, err := rundb.Open(s.basedir, rundb.WithLogger(s.logger))
	if err != nil {
		return Result{}, err
	}

	now := time.Now()
	w.Metadata["comments"] = s.comments
	w.Metadata["type"] = "0D"
	w.Metadata["columns"] = append([]string{"time"}, s.colNames()...)
	w.Metadata["time"] = epochSeconds(now)

	var runErr error
	if err := s.runBefores(); err != nil {
		runErr = err
	} else if vals, err := s.measure(); err != nil {
		runErr = err
	} else {
		row := append([]float64{epochSeconds(time.Now())}, vals...)
		if err := w.Append(rowValues(row)...); err != nil {
			runErr = err
		} else {
			runErr = s.runAfters()
		}
	}

	err = multierr.Append(runErr, w.Close())
	s.logger.Info().Int("id", w.ID()).Str("data", w.DataPath()).Msg("Measurement saved")
	return Result{Basedir: s.basedir, ID: w.ID(), Metadata: w.Metadata, DataPath: w.DataPath()}, err
}

// Watch measures over time every delay until maxDuration has elapsed
// (forever when maxDuration <= 0) or an interrupt arrives.
func (s *Station) Watch(delay, maxDuration time.Duration) (Result, error) {
	cols := append([]string{"time"}, s.colNames()...)

	w, intr, err := s.beginRun(cols, map[string]any{
		"type":  "1D",
		"delay": delay.Seconds(),
		"max_duration": func() any {
			if maxDuration <= 0 {
				return nil
			}
			return maxDuration.Seconds()
		}(),
	})
	if err != nil {
		return Result{}, err
	}
	defer intr.Close()

	var runErr error
	start := time.Now() // monotonic; wall-clock jumps must not end the watch
	for maxDuration <= 0 || time.Since(start) < maxDuration {
		time.Sleep(delay)
		if _, err := s.takePoint(w, nil); err != nil {
			runErr = err
			break
		}
		if intr.Requested() {
			w.Metadata["interrupted"] = true
			break
		}
		if err := s.runAfters(); err != nil {
			runErr = err
			break
		}
	}
	return s.finishRun(w, runErr)
}

// Sweep steps param through setpoints, waiting delay after each set
// before measuring.
func (s *Station) Sweep(param Settable, setpoints []float64, delay time.Duration) (Result, error) {
	cols := append([]string{"time", param.Name()}, s.colNames()...)

	w, intr, err := s.beginRun(cols, map[string]any{
		"type":      "1D",
		"delay":     delay.Seconds(),
		"param":     param.Name(),
		"setpoints": setpoints,
	})
	if err != nil {
		return Result{}, err
	}
	defer intr.Close()

	s.logger.Info().
		Dur("min_duration", time.Duration(len(setpoints))*delay).
		Msg("Sweep started")

	var runErr error
	for _, sp := range setpoints {
		if err := param.Set(sp); err != nil {
			runErr = fmt.Errorf("failed to set %s: %w", param.Name(), err)
			break
		}
		time.Sleep(delay)
		if _, err := s.takePoint(w, []float64{sp}); err != nil {
			runErr = err
			break
		}
		if intr.Requested() {
			w.Metadata["interrupted"] = true
			break
		}
		if err := s.runAfters(); err != nil {
			runErr = err
			break
		}
	}
	return s.finishRun(w, runErr)
}

// Multisweep steps several parameters in lockstep: setpointLists[i][k]
// is the k-th setpoint of params[i]. All lists must have equal length.
func (s *Station) Multisweep(params []Settable, setpointLists [][]float64, delay time.Duration) (Result, error) {
	names, err := lockstepNames(params, setpointLists)
	if err != nil {
		return Result{}, err
	}
	cols := append(append([]string{"time"}, names...), s.colNames()...)

	w, intr, err := s.beginRun(cols, map[string]any{
		"type":      "1D",
		"delay":     delay.Seconds(),
		"param":     names,
		"setpoints": setpointLists,
	})
	if err != nil {
		return Result{}, err
	}
	defer intr.Close()

	var runErr error
	for k := 0; k < len(setpointLists[0]); k++ {
		step, err := setLockstep(params, setpointLists, k)
		if err != nil {
			runErr = err
			break
		}
		time.Sleep(delay)
		if _, err := s.takePoint(w, step); err != nil {
			runErr = err
			break
		}
		if intr.Requested() {
			w.Metadata["interrupted"] = true
			break
		}
		if err := s.runAfters(); err != nil {
			runErr = err
			break
		}
	}
	return s.finishRun(w, runErr)
}

// Megasweep runs a 2D sweep: for each slow setpoint, the fast parameter
// sweeps its full range.
func (s *Station) Megasweep(slow Settable, slowSet []float64, fast Settable, fastSet []float64, slowDelay, fastDelay time.Duration) (Result, error) {
	cols := append([]string{"time", slow.Name(), fast.Name()}, s.colNames()...)

	w, intr, err := s.beginRun(cols, map[string]any{
		"type":           "2D",
		"slow_delay":     slowDelay.Seconds(),
		"fast_delay":     fastDelay.Seconds(),
		"slow_param":     slow.Name(),
		"fast_param":     fast.Name(),
		"slow_setpoints": slowSet,
		"fast_setpoints": fastSet,
	})
	if err != nil {
		return Result{}, err
	}
	defer intr.Close()

	minDuration := time.Duration(len(slowSet)*len(fastSet))*fastDelay +
		time.Duration(len(slowSet))*slowDelay
	s.logger.Info().Dur("min_duration", minDuration).Msg("Megasweep started")

	var runErr error
outer:
	for _, ov := range slowSet {
		if err := slow.Set(ov); err != nil {
			runErr = fmt.Errorf("failed to set %s: %w", slow.Name(), err)
			break
		}
		time.Sleep(slowDelay)
		for _, iv := range fastSet {
			if err := fast.Set(iv); err != nil {
				runErr = fmt.Errorf("failed to set %s: %w", fast.Name(), err)
				break outer
			}
			time.Sleep(fastDelay)
			if _, err := s.takePoint(w, []float64{ov, iv}); err != nil {
				runErr = err
				break outer
			}
			if intr.Requested() {
				w.Metadata["interrupted"] = true
				break outer
			}
			if err := s.runAfters(); err != nil {
				runErr = err
				break outer
			}
		}
	}
	return s.finishRun(w, runErr)
}

// Multimegasweep runs a 2D sweep with several parameters moving in
// lockstep on each axis: slowSet[i][k] is the k-th setpoint of slow[i],
// and for each slow step the fast parameters run their full range.
func (s *Station) Multimegasweep(slow []Settable, slowSet [][]float64, fast []Settable, fastSet [][]float64, slowDelay, fastDelay time.Duration) (Result, error) {
	slowNames, err := lockstepNames(slow, slowSet)
	if err != nil {
		return Result{}, err
	}
	fastNames, err := lockstepNames(fast, fastSet)
	if err != nil {
		return Result{}, err
	}

	cols := append([]string{"time"}, slowNames...)
	cols = append(cols, fastNames...)
	cols = append(cols, s.colNames()...)

	w, intr, err := s.beginRun(cols, map[string]any{
		"type":           "2D",
		"slow_delay":     slowDelay.Seconds(),
		"fast_delay":     fastDelay.Seconds(),
		"slow_param":     slowNames,
		"fast_param":     fastNames,
		"slow_setpoints": slowSet,
		"fast_setpoints": fastSet,
	})
	if err != nil {
		return Result{}, err
	}
	defer intr.Close()

	minDuration := time.Duration(len(slowSet[0])*len(fastSet[0]))*fastDelay +
		time.Duration(len(slowSet[0]))*slowDelay
	s.logger.Info().Dur("min_duration", minDuration).Msg("Multimegasweep started")

	var runErr error
outer:
	for k := 0; k < len(slowSet[0]); k++ {
		ostep, err := setLockstep(slow, slowSet, k)
		if err != nil {
			runErr = err
			break
		}
		time.Sleep(slowDelay)
		for j := 0; j < len(fastSet[0]); j++ {
			istep, err := setLockstep(fast, fastSet, j)
			if err != nil {
				runErr = err
				break outer
			}
			time.Sleep(fastDelay)
			setvals := append(append(make([]float64, 0, len(ostep)+len(istep)), ostep...), istep...)
			if _, err := s.takePoint(w, setvals); err != nil {
				runErr = err
				break outer
			}
			if intr.Requested() {
				w.Metadata["interrupted"] = true
				break outer
			}
			if err := s.runAfters(); err != nil {
				runErr = err
				break outer
			}
		}
	}
	return s.finishRun(w, runErr)
}

// lockstepNames validates that every parameter has a setpoint list of
// equal length and resolves the column names.
func lockstepNames(params []Settable, lists [][]float64) ([]string, error) {
	if len(params) == 0 || len(params) != len(lists) {
		return nil, fmt.Errorf("%w: %d params, %d lists", errLengthMismatch, len(params), len(lists))
	}
	for _, l := range lists {
		if len(l) != len(lists[0]) {
			return nil, errLengthMismatch
		}
	}
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name()
	}
	return names, nil
}

// setLockstep commands every parameter to its k-th setpoint and returns
// the commanded values.
func setLockstep(params []Settable, lists [][]float64, k int) ([]float64, error) {
	step := make([]float64, len(params))
	for i, p := range params {
		step[i] = lists[i][k]
		if err := p.Set(step[i]); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", p.Name(), err)
		}
	}
	return step, nil
}

// beginRun allocates the run directory, seeds common metadata, opens the
// interrupt region and starts the plotter.
func (s *Station) beginRun(cols []string, md map[string]any) (*rundb.Writer, *interruptRegion, error) {
	w, err := rundb.Open(s.basedir, rundb.WithLogger(s.logger))
	if err != nil {
		return nil, nil, err
	}

	w.Metadata["comments"] = s.comments
	w.Metadata["columns"] = cols
	w.Metadata["interrupted"] = false
	w.Metadata["start_time"] = epochSeconds(time.Now())
	for k, v := range md {
		w.Metadata[k] = v
	}

	s.logger.Info().Int("id", w.ID()).Msg("Run started")

	s.plotter.SetColumns(cols)
	if err := s.plotter.Start(); err != nil {
		// The run can proceed without visualization; data comes first.
		s.logger.Warn().Err(err).Msg("Failed to start renderer, continuing without plots")
	}

	return w, notifyInterrupt(), nil
}

// takePoint runs the before hooks, measures, and records one point to
// both the store and the plotter. setvals are the commanded values that
// prefix the measured ones.
func (s *Station) takePoint(w *rundb.Writer, setvals []float64) ([]float64, error) {
	if err := s.runBefores(); err != nil {
		return nil, err
	}
	vals, err := s.measure()
	if err != nil {
		return nil, err
	}
	row := make([]float64, 0, 1+len(setvals)+len(vals))
	row = append(row, epochSeconds(time.Now()))
	row = append(row, setvals...)
	row = append(row, vals...)

	if err := w.Append(rowValues(row)...); err != nil {
		return nil, err
	}
	s.plotter.AddPoint(row)
	return row, nil
}

// finishRun is the drain shared by every loop shape, also on error and
// after an interrupt: stamp end_time, capture and embed the final plot
// image, stop the renderer, close the store.
func (s *Station) finishRun(w *rundb.Writer, runErr error) (Result, error) {
	w.Metadata["end_time"] = epochSeconds(time.Now())

	image, err := s.plotter.SendImage()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to capture final plot image")
	}
	if len(image) > 0 {
		if _, err := w.AddBlob("plot.png", image); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to save final plot image")
		}
	}
	if err := s.plotter.Stop(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to stop renderer")
	}

	err = multierr.Append(runErr, w.Close())

	if start, ok := w.Metadata["start_time"].(float64); ok {
		if end, ok := w.Metadata["end_time"].(float64); ok {
			s.logger.Info().
				Int("id", w.ID()).
				Str("data", w.DataPath()).
				Dur("duration", time.Duration((end-start)*float64(time.Second))).
				Msg("Run complete")
		}
	}

	return Result{Basedir: s.basedir, ID: w.ID(), Metadata: w.Metadata, DataPath: w.DataPath()}, err
}

func rowValues(row []float64) []any {
	vals := make([]any, len(row))
	for i, v := range row {
		vals[i] = v
	}
	return vals
}
