package liveplot

// This file contains the caller-facing side of the plot process
// protocol. The controller spawns the renderer as a separate process
// (this binary's hidden render command) and talks to it over its
// stdin/stdout pipes. With zero registered plots no process is ever
// spawned and every call is a no-op, so headless runs pay nothing.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// RenderCommand is the hidden CLI command the controller re-executes
// itself with to obtain a renderer process.
const RenderCommand = "render"

// DefaultImageTimeout bounds how long SendImage waits for the renderer's
// reply before giving up. The renderer may have died mid-run; blocking
// forever would hang the sweep's final drain.
const DefaultImageTimeout = 30 * time.Second

var errRendererExited = errors.New("renderer exited before replying")

// Controller drives a renderer worker. Zero value is not usable; use
// NewController. A controller can be started and stopped repeatedly; the
// registered plot specs persist across runs.
type Controller struct {
	specs   []Spec
	columns []string

	timeout    time.Duration
	logger     zerolog.Logger
	renderPath string
	renderArgs []string

	cmd     *exec.Cmd
	stdin   io.WriteCloser
	enc     *json.Encoder
	replies chan imageReply
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithImageTimeout overrides the SendImage reply timeout.
func WithImageTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) { c.timeout = d }
}

// WithControllerLogger attaches a logger. The default discards.
func WithControllerLogger(logger zerolog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// WithRenderCommand overrides the renderer executable and arguments.
// The default re-executes this binary with the hidden render command,
// which assumes the host program routes it to RunRenderer (the sweepgo
// CLI does). Programs embedding the controller under another binary can
// point this at an installed sweepgo instead.
func WithRenderCommand(path string, args ...string) ControllerOption {
	return func(c *Controller) {
		c.renderPath = path
		c.renderArgs = args
	}
}

// NewController creates a controller with no plots registered.
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		timeout: DefaultImageTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Plot registers one subplot. Validation happens here, before any worker
// exists, so a malformed spec fails the registration call immediately.
func (c *Controller) Plot(spec Spec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("invalid plot spec: %w", err)
	}
	c.specs = append(c.specs, spec)
	return nil
}

// NumPlots returns how many subplots are registered.
func (c *Controller) NumPlots() int { return len(c.specs) }

// SetColumns fixes the column order used to translate raw value slices
// into named points. Call before the first AddPoint of a run.
func (c *Controller) SetColumns(cols []string) {
	c.columns = append([]string(nil), cols...)
}

// Running reports whether a renderer process is currently attached.
func (c *Controller) Running() bool { return c.cmd != nil }

// Start spawns the renderer process and sends it the full list of plot
// specs. It is a no-op when no plots are registered.
func (c *Controller) Start() error {
	if len(c.specs) == 0 || c.cmd != nil {
		return nil
	}

	exe := c.renderPath
	args := c.renderArgs
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate own executable: %w", err)
		}
		args = []string{RenderCommand}
	}

	cmd := exec.Command(exe, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open renderer stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open renderer stdout: %w", err)
	}

	c.logger.Debug().
		Str("cmd", shellescape.QuoteCommand(append([]string{exe}, args...))).
		Msg("Spawning renderer process")

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to spawn renderer: %w", err)
	}

	c.cmd = cmd
	c.stdin = stdin
	c.enc = json.NewEncoder(stdin)
	c.replies = make(chan imageReply, 1)

	// Replies are whole JSON values; the decoder handles its own
	// framing. The channel closes when the renderer's stdout does.
	go func(out io.Reader, replies chan<- imageReply) {
		dec := json.NewDecoder(out)
		for {
			var rep imageReply
			if err := dec.Decode(&rep); err != nil {
				close(replies)
				return
			}
			replies <- rep
		}
	}(stdout, c.replies)

	if err := c.enc.Encode(message{Action: actionStart, Plots: c.specs}); err != nil {
		return fmt.Errorf("failed to send start message: %w", err)
	}
	return nil
}

// AddPoint sends one row of values, fire-and-forget. Values are paired
// with the column names from SetColumns; a send failure is logged and
// otherwise ignored because plotting is best-effort visualization.
func (c *Controller) AddPoint(values []float64) {
	if c.cmd == nil {
		return
	}
	data := make(Point, len(values))
	for i, v := range values {
		if i >= len(c.columns) {
			break
		}
		data[c.columns[i]] = v
	}
	if err := c.enc.Encode(message{Action: actionAddPoint, Data: data}); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to send point to renderer")
	}
}

// SendImage asks the renderer for a PNG snapshot of the current figure
// and blocks for the reply. It returns nil bytes and nil error when no
// plots are registered (no renderer was ever started).
func (c *Controller) SendImage() ([]byte, error) {
	if c.cmd == nil {
		return nil, nil
	}
	// A previous request may have timed out and its late reply would
	// otherwise be mistaken for this one; discard anything buffered.
	for stale := true; stale; {
		select {
		case _, ok := <-c.replies:
			if !ok {
				return nil, errRendererExited
			}
		default:
			stale = false
		}
	}
	if err := c.enc.Encode(message{Action: actionSendImage}); err != nil {
		return nil, fmt.Errorf("failed to request image: %w", err)
	}
	select {
	case rep, ok := <-c.replies:
		if !ok {
			return nil, errRendererExited
		}
		if rep.Err != "" {
			return nil, fmt.Errorf("renderer failed to produce image: %s", rep.Err)
		}
		return rep.Image, nil
	case <-time.After(c.timeout):
		return nil, fmt.Errorf("no image reply within %s", c.timeout)
	}
}

// Stop sends the stop message, closes the channel and joins the worker,
// blocking until it exits. No-op when no renderer is attached.
func (c *Controller) Stop() error {
	if c.cmd == nil {
		return nil
	}
	err := c.enc.Encode(message{Action: actionStop})
	err = multierr.Append(err, c.stdin.Close())
	err = multierr.Append(err, c.cmd.Wait())

	c.cmd = nil
	c.stdin = nil
	c.enc = nil
	c.replies = nil

	if err != nil {
		return fmt.Errorf("failed to stop renderer: %w", err)
	}
	return nil
}
