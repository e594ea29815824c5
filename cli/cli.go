package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "fsbench"

// Exit codes distinguish which phase failed, so wrapper scripts can
// tell a clone failure from a build failure without parsing output.
const (
	exitConfig = 1
	exitClone  = 2
	exitBuild  = 3
	exitStat   = 4
)

type App struct {
	logger   zerolog.Logger
	cli      *cli.App
	defaults envDefaults
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
		logger:   logger,
		defaults: loadEnvDefaults(logger),
		cli: &cli.App{
			Name:  AppName,
			Usage: "Benchmark filesystem performance with compile workloads",
			Flags: []cli.Flag{
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
		Name:      "run",
		Usage:     "Run one compile workload (clone, build, stat) in a target directory",
		ArgsUsage: "<targetDir>",
		Action:    app.run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Project to clone and compile, required unless --header-only (see 'fsbench projects')",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "CSV file to append results to",
				Value:   app.defaults.Output,
			},
			&cli.BoolFlag{
				Name:    "header-only",
				Aliases: []string{"H"},
				Usage:   "Only write the report header, no run",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Filesystem backend label recorded in the report",
				Value: app.defaults.Backend,
			},
			&cli.BoolFlag{
				Name:  "best-effort",
				Usage: "Run the stat phase even when the build fails",
			},
			&cli.StringFlag{
				Name:  "profiles",
				Usage: "YAML file with additional project profiles",
			},
			&cli.StringFlag{
				Name:  "log-dir",
				Usage: "Directory for per-run diagnostics (phase logs, result metadata)",
				Value: app.defaults.LogDir,
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "bench",
		Usage:  "Run the full benchmark matrix of backends and projects",
		Action: app.bench,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML benchmark matrix file",
			},
			&cli.StringSliceFlag{
				Name:  "backend",
				Usage: "Backend to benchmark: NAME or NAME=BINARY:CONFIGPATH (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Project to benchmark (repeatable)",
			},
			&cli.StringFlag{
				Name:  "target-dir",
				Usage: "Directory workloads run in (recreated empty per run)",
				Value: app.defaults.TargetDir,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "CSV file to append results to (default: timestamped)",
			},
			&cli.StringFlag{
				Name:  "log-dir",
				Usage: "Directory for run diagnostics and filesystem logs",
				Value: app.defaults.LogDir,
			},
			&cli.BoolFlag{
				Name:  "best-effort",
				Usage: "Run the stat phase even when the build fails",
			},
			&cli.StringFlag{
				Name:  "profiles",
				Usage: "YAML file with additional project profiles",
			},
			&cli.DurationFlag{
				Name:  "ready-timeout",
				Usage: "How long to poll for the filesystem mount to become ready",
				Value: app.defaults.ReadyTimeout,
			},
			&cli.DurationFlag{
				Name:  "drain",
				Usage: "How long to wait for the filesystem to flush and exit after interrupt",
				Value: app.defaults.Drain,
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "projects",
		Usage:  "List supported projects and their build steps",
		Action: app.projects,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "profiles",
				Usage: "YAML file with additional project profiles",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List recorded benchmark runs",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Filter by project identifier",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: 20)",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "log-dir",
				Usage: "Directory holding recorded runs",
				Value: app.defaults.LogDir,
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
