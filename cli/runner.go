package cli

// This file contains the hidden runner command: the child entry point
// the harness spawns to execute the suite in a fresh process.

import (
	"github.com/urfave/cli/v2"

	"github.com/benchjudge/benchjudge/runner"
)

func (a *App) runner(ctx *cli.Context) error {
	r := runner.New(a.logger)
	return r.Run(ctx.Context, runner.Options{
		PkgPath:    ctx.String("pkg"),
		SuitePath:  ctx.String("suite"),
		TuningPath: ctx.String("tune"),
		Retune:     ctx.Bool("retune"),
		OutPath:    ctx.String("out"),
		ProfileDir: ctx.String("profile-dir"),
	})
}
