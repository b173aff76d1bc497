package liveplot

// This file contains the renderer-side event loop. It is a cooperative
// polling loop: each iteration drains every message currently queued,
// applies them as one batch, re-renders at most once, then yields. A
// burst of add_point messages therefore coalesces into a single redraw.
// Signal handling is the caller's job (the render CLI command ignores
// SIGINT so Ctrl-C only reaches the controller side); EOF on the input
// stream is treated as stop so an orphaned renderer exits on its own.

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// RenderConfig configures one renderer loop.
type RenderConfig struct {
	// PreviewPath, when set, receives the latest rendered frame as a
	// PNG file after every dirty batch, giving the operator a live view.
	PreviewPath string
	// PollInterval is the yield between loop iterations. Defaults to
	// 50ms.
	PollInterval time.Duration
	// Logger for renderer-side diagnostics. Defaults to a no-op.
	Logger zerolog.Logger
}

// RunRenderer consumes messages from in and writes image replies to out,
// returning when a stop message arrives or in reaches EOF. It owns all
// figure state for its lifetime.
func RunRenderer(in io.Reader, out io.Writer, cfg RenderConfig) error {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}

	msgs := make(chan message, 256)
	go func() {
		dec := json.NewDecoder(in)
		for {
			var m message
			if err := dec.Decode(&m); err != nil {
				close(msgs)
				return
			}
			msgs <- m
		}
	}()

	enc := json.NewEncoder(out)

	var fig *figure
	for {
		batch, open := drain(msgs)

		var points []Point
		send := false
		quit := !open
		for _, m := range batch {
			switch m.Action {
			case actionStart:
				fig = newFigure(m.Plots)
				cfg.Logger.Debug().Int("plots", len(m.Plots)).Msg("Figure started")
			case actionStop:
				quit = true
			case actionSendImage:
				send = true
			case actionAddPoint:
				points = append(points, m.Data)
			}
		}

		dirty := false
		if len(points) > 0 && fig != nil {
			fig.addPoints(points)
			dirty = true
		}

		if dirty && cfg.PreviewPath != "" {
			if png, err := fig.renderPNG(); err != nil {
				cfg.Logger.Warn().Err(err).Msg("Failed to render preview frame")
			} else if err := os.WriteFile(cfg.PreviewPath, png, 0o644); err != nil {
				cfg.Logger.Warn().Err(err).Str("path", cfg.PreviewPath).Msg("Failed to write preview frame")
			}
		}

		if send {
			rep := imageReply{}
			if fig == nil {
				rep.Err = "no figure started"
			} else if png, err := fig.renderPNG(); err != nil {
				rep.Err = err.Error()
			} else {
				rep.Image = png
			}
			if err := enc.Encode(rep); err != nil {
				return fmt.Errorf("failed to write image reply: %w", err)
			}
		}

		if quit {
			return nil
		}
		time.Sleep(cfg.PollInterval)
	}
}

// drain collects every message currently queued without blocking. The
// second return is false once the channel is closed and empty.
func drain(msgs <-chan message) ([]message, bool) {
	var batch []message
	for {
		select {
		case m, ok := <-msgs:
			if !ok {
				return batch, false
			}
			batch = append(batch, m)
		default:
			return batch, true
		}
	}
}
