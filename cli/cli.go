package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "sweepgo"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Browse and verify measurement runs, host the live plot renderer",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "basedir",
					Aliases: []string{"d"},
					Usage:   "Base directory holding the numbered run directories",
				},
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
		},
	}
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List measurement runs in the base directory",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: all)",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "info",
		Usage:     "Show one run's metadata",
		ArgsUsage: "ID",
		Action:    app.info,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "verify",
		Usage:     "Check a finalized run's compressed data for integrity",
		ArgsUsage: "ID",
		Action:    app.verify,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "render",
		Usage:  "Run the plot renderer worker (spawned internally)",
		Hidden: true,
		Action: app.render,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "preview",
				Usage: "Write the latest frame to this PNG file after every update",
			},
		},
	})
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && commit != "" {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}

func (a *App) basedir(ctx *cli.Context) (string, error) {
	dir := ctx.String("basedir")
	if dir == "" {
		return "", fmt.Errorf("no base directory specified: pass --basedir")
	}
	return dir, nil
}
