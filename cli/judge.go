package cli

// This file contains the judge command: compare two runs (given as
// results files or revisions) and classify every benchmark.

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/benchjudge/benchjudge/harness"
	"github.com/benchjudge/benchjudge/judge"
	"github.com/benchjudge/benchjudge/model"
	"github.com/benchjudge/benchjudge/report"
)

func (a *App) judge(ctx *cli.Context) error {
	args := ctx.Args().Slice()
	if len(args) < 2 {
		return fmt.Errorf("judge requires BASELINE and TARGET arguments (results file or revision each)")
	}
	baselineArg, targetArg := args[0], args[1]
	pkgPath := "."
	if len(args) > 2 {
		pkgPath = args[2]
	}

	req, err := a.buildRequest(ctx, pkgPath)
	if err != nil {
		return err
	}

	inv, err := a.beginInvocation(model.RecordTypeJudge, pkgPath)
	if err != nil {
		return err
	}
	var finalErr error
	defer func() { a.finishInvocation(inv, finalErr) }()

	executor := harness.New(a.logger)

	baseline, err := a.resolveResults(ctx, executor, req, baselineArg)
	if err != nil {
		finalErr = err
		return err
	}
	target, err := a.resolveResults(ctx, executor, req, targetArg)
	if err != nil {
		finalErr = err
		return err
	}

	timeTolerance := ctx.Float64("time-tolerance")
	memoryTolerance := ctx.Float64("memory-tolerance")
	judgement := judge.Judge(baseline.Tree, target.Tree,
		judge.WithTimeTolerance(timeTolerance),
		judge.WithMemoryTolerance(memoryTolerance),
	)

	inv.record.Judge = &model.JudgeInfo{
		Baseline:        baselineArg,
		Target:          targetArg,
		TimeTolerance:   timeTolerance,
		MemoryTolerance: memoryTolerance,
		Time:            judgement.Time,
		Memory:          judgement.Memory,
	}

	report.Judgement(os.Stdout, judgement)

	if data, err := json.MarshalIndent(judgement, "", "  "); err == nil {
		a.saveArtifact(inv, "judgement.json", model.ArtifactTypeJudgement, data)
	}

	if out := ctx.String("out"); out != "" {
		if err := judgement.WriteFile(out); err != nil {
			finalErr = err
			return err
		}
		a.logger.Info().Str("path", out).Msg("Judgement written")
	}

	if judgement.Time == model.VerdictRegression {
		finalErr = cli.Exit("time regression detected", 2)
		return finalErr
	}
	return nil
}

// resolveResults turns a command-line argument into results: an
// existing file is loaded, anything else is treated as a revision and
// benchmarked on the spot.
func (a *App) resolveResults(ctx *cli.Context, executor *harness.Executor, req harness.Request, arg string) (*model.Results, error) {
	if _, err := os.Stat(arg); err == nil {
		a.logger.Debug().Str("file", arg).Msg("Loading results file")
		return model.ReadResultsFile(arg)
	}
	a.logger.Info().Str("revision", arg).Msg("Benchmarking revision")
	req.Config = req.Config.Clone()
	req.Config.Revision = arg
	return executor.Execute(ctx.Context, req)
}
