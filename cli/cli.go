package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "benchjudge"

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
			Usage: "Benchmark a package across its version history and detect performance regressions",
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
		Usage:     "Run the benchmark suite once and record the results",
		ArgsUsage: "[path]",
		Action:    app.run,
		Flags: append(suiteFlags(),
			&cli.StringFlag{
				Name:    "revision",
				Aliases: []string{"r"},
				Usage:   "Git revision to benchmark (default: current working tree)",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Write results JSON to this path",
			},
			&cli.BoolFlag{
				Name:  "profile",
				Usage: "Capture a CPU profile per benchmark",
			},
		),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "judge",
		Usage:     "Compare two benchmark runs and classify every benchmark",
		ArgsUsage: "BASELINE TARGET [path]",
		Action:    app.judge,
		Description: `Compare a baseline against a target run.

BASELINE and TARGET are each either a results JSON file written by
'run --out' or a git revision to benchmark on the spot.

Exits with code 2 when the target regressed in time, so the command can
gate CI pipelines directly.`,
		Flags: append(append(suiteFlags(), toleranceFlags()...),
			&cli.StringFlag{
				Name:  "out",
				Usage: "Write judgement JSON to this path",
			},
		),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "bisect",
		Usage:     "Binary-search commit history for the revision introducing a regression",
		ArgsUsage: "[path]",
		Action:    app.bisect,
		Flags: append(append(suiteFlags(), toleranceFlags()...),
			&cli.StringFlag{
				Name:     "good",
				Usage:    "Revision known to perform well",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "bad",
				Usage:    "Revision known to exhibit the regression",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "commits",
				Usage: "File with one candidate revision per line (default: git rev-list good..bad)",
			},
			&cli.StringFlag{
				Name:  "metric",
				Usage: "Which regression to search for: time or memory",
				Value: "time",
			},
		),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List previous runs, judgements and bisections",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "Filter by relative path (e.g., pkg/codec)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: 20)",
				Value:   20,
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:            "view",
		Usage:           "View recorded results from history",
		ArgsUsage:       "[ID|INDEX]",
		Action:          app.view,
		SkipFlagParsing: true,
		Description: `View recorded results from history.

Arguments:
  0           View last invocation (default)
  -1          View 2nd last invocation
  -2          View 3rd last invocation
  <hex-id>    View invocation matching the hex ID prefix

Examples:
  benchjudge view           # View last invocation
  benchjudge view -1        # View 2nd last invocation
  benchjudge view abc123    # View invocation with ID starting with abc123

Display Priority:
  1. Judgements (judgement.json)
  2. Results (results.json)
  3. CPU profiles (*.pprof)
  4. Captured stdout/stderr`,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "runner",
		Usage:  "Execute the benchmark suite in-process (child entry point)",
		Hidden: true,
		Action: app.runner,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "suite",
				Usage:    "Suite manifest path",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "out",
				Usage:    "Report output path",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "tune",
				Usage:    "Tuning parameter file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "pkg",
				Usage:    "Repository root of the benchmarked package",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "retune",
				Usage: "Recalibrate tuning parameters",
			},
			&cli.StringFlag{
				Name:  "profile-dir",
				Usage: "Directory for per-benchmark CPU profiles",
			},
		},
	})
	return app
}

// suiteFlags are shared by every command that may execute the harness.
func suiteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "suite",
			Aliases: []string{"s"},
			Usage:   "Suite manifest path",
			Value:   "benchmarks.yaml",
		},
		&cli.StringFlag{
			Name:  "tuning",
			Usage: "Tuning parameter file (default: .benchjudge/tuning.json)",
		},
		&cli.BoolFlag{
			Name:  "retune",
			Usage: "Recalibrate tuning parameters and persist them",
		},
		&cli.StringSliceFlag{
			Name:  "env",
			Usage: "Environment override for the benchmark process (KEY=VALUE, repeatable)",
		},
		&cli.StringSliceFlag{
			Name:  "exec",
			Usage: "Child executable argv element (repeatable; default: this binary's runner command)",
		},
	}
}

func toleranceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:  "time-tolerance",
			Usage: "Relative noise band for time verdicts",
			Value: 0.05,
		},
		&cli.Float64Flag{
			Name:  "memory-tolerance",
			Usage: "Relative noise band for memory verdicts",
			Value: 0.01,
		},
	}
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
