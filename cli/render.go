package cli

// This file contains the hidden render command: the entry point of the
// renderer worker process spawned by liveplot.Controller. The worker
// ignores SIGINT so an operator's Ctrl-C only reaches the measurement
// process; EOF on stdin makes an orphaned worker exit on its own.

import (
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/sweepgo/sweepgo/liveplot"
)

func (a *App) render(ctx *cli.Context) error {
	signal.Ignore(os.Interrupt)

	return liveplot.RunRenderer(os.Stdin, os.Stdout, liveplot.RenderConfig{
		PreviewPath: ctx.String("preview"),
		Logger:      a.logger,
	})
}
