package cli

// This file contains the bisect command: binary-search an ordered
// commit range for the revision that introduced a regression.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/benchjudge/benchjudge/bisect"
	"github.com/benchjudge/benchjudge/harness"
	"github.com/benchjudge/benchjudge/judge"
	"github.com/benchjudge/benchjudge/model"
	"github.com/benchjudge/benchjudge/vcs"
)

func (a *App) bisect(ctx *cli.Context) error {
	pkgPath := ctx.Args().First()
	if pkgPath == "" {
		pkgPath = "."
	}
	good := ctx.String("good")
	bad := ctx.String("bad")

	var predicate bisect.Predicate
	switch metric := ctx.String("metric"); metric {
	case "time":
		predicate = bisect.AnyTimeRegression
	case "memory":
		predicate = bisect.AnyMemoryRegression
	default:
		return fmt.Errorf("unknown metric %q (expected time or memory)", metric)
	}

	req, err := a.buildRequest(ctx, pkgPath)
	if err != nil {
		return err
	}

	commits, err := a.candidateCommits(ctx, pkgPath, good, bad)
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		return fmt.Errorf("no candidate revisions between %s and %s", good, bad)
	}
	a.logger.Info().
		Str("good", good).
		Str("bad", bad).
		Int("candidates", len(commits)).
		Msg("Starting bisection")

	inv, err := a.beginInvocation(model.RecordTypeBisect, pkgPath)
	if err != nil {
		return err
	}
	var finalErr error
	defer func() { a.finishInvocation(inv, finalErr) }()

	search := bisect.New(a.logger, harness.New(a.logger))
	outcome, err := search.Run(ctx.Context, bisect.Params{
		Good:    good,
		Bad:     bad,
		Commits: commits,
		Request: req,
		JudgeOptions: []judge.Option{
			judge.WithTimeTolerance(ctx.Float64("time-tolerance")),
			judge.WithMemoryTolerance(ctx.Float64("memory-tolerance")),
		},
		Predicate: predicate,
	})
	if err != nil {
		var inconclusive *bisect.InconclusiveError
		if errors.As(err, &inconclusive) {
			a.printTrace(inconclusive.Trace)
			if data, merr := json.MarshalIndent(inconclusive.Trace, "", "  "); merr == nil {
				a.saveArtifact(inv, "trace.json", model.ArtifactTypeTrace, data)
			}
		}
		finalErr = err
		return err
	}

	a.printTrace(outcome.Trace)
	fmt.Printf("\nCulprit: %s\n", outcome.Culprit)

	inv.record.Bisect = &model.BisectInfo{
		Good:    good,
		Bad:     bad,
		Culprit: outcome.Culprit,
		Steps:   len(outcome.Trace),
	}
	if data, err := json.MarshalIndent(outcome, "", "  "); err == nil {
		a.saveArtifact(inv, "trace.json", model.ArtifactTypeTrace, data)
	}
	return nil
}

// candidateCommits reads the commit list file when given, otherwise
// enumerates good..bad from git, oldest first.
func (a *App) candidateCommits(ctx *cli.Context, pkgPath, good, bad string) ([]string, error) {
	if path := ctx.String("commits"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read commit list: %w", err)
		}
		var commits []string
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				commits = append(commits, line)
			}
		}
		return commits, nil
	}
	return vcs.RevList(pkgPath, good, bad)
}

func (a *App) printTrace(trace []bisect.Step) {
	fmt.Printf("\n=== Search trace (%d evaluations) ===\n", len(trace))
	for i, step := range trace {
		status := "ok"
		if step.Regressed {
			status = "regressed"
		}
		fmt.Printf("%2d. %s  %s\n", i+1, step.Revision, status)
	}
}
