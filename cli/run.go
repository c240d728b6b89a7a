package cli

// This file contains the run command: one harness execution at an
// optional revision, rendered to the terminal and recorded to history.

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/benchjudge/benchjudge/harness"
	"github.com/benchjudge/benchjudge/model"
	"github.com/benchjudge/benchjudge/report"
)

func (a *App) run(ctx *cli.Context) error {
	pkgPath := ctx.Args().First()
	if pkgPath == "" {
		pkgPath = "."
	}

	req, err := a.buildRequest(ctx, pkgPath)
	if err != nil {
		return err
	}
	req.Config.Revision = ctx.String("revision")

	inv, err := a.beginInvocation(model.RecordTypeRun, pkgPath)
	if err != nil {
		return err
	}
	var finalErr error
	defer func() { a.finishInvocation(inv, finalErr) }()

	if ctx.Bool("profile") && inv.runDir != "" {
		req.ProfileDir = filepath.Join(inv.runDir, "profiles")
	}

	// Capture child output for history while streaming it live
	var stdoutBuf, stderrBuf bytes.Buffer
	executor := harness.New(a.logger, harness.WithSinkFactory(func(label string) io.Writer {
		if label == "stdout" {
			return io.MultiWriter(os.Stdout, &stdoutBuf)
		}
		return io.MultiWriter(os.Stderr, &stderrBuf)
	}))

	results, err := executor.Execute(ctx.Context, req)
	a.saveArtifact(inv, "stdout.txt", model.ArtifactTypeStdout, stdoutBuf.Bytes())
	a.saveArtifact(inv, "stderr.txt", model.ArtifactTypeStderr, stderrBuf.Bytes())
	if err != nil {
		a.logger.Error().Err(err).Msg("Benchmark run failed")
		finalErr = err
		return err
	}

	inv.record.Run = &model.RunInfo{
		Revision: req.Config.Revision,
		Package:  results.Package,
		Suite:    req.SuitePath,
	}

	report.Results(os.Stdout, results)

	if data, err := json.MarshalIndent(results, "", "  "); err == nil {
		a.saveArtifact(inv, "results.json", model.ArtifactTypeResults, data)
	}
	a.registerProfiles(inv, req.ProfileDir)

	if out := ctx.String("out"); out != "" {
		if err := results.WriteFile(out); err != nil {
			finalErr = err
			return err
		}
		a.logger.Info().Str("path", out).Msg("Results written")
	}
	return nil
}

// registerProfiles records the CPU profiles the child wrote into the
// run directory.
func (a *App) registerProfiles(inv *invocation, profileDir string) {
	if profileDir == "" {
		return
	}
	entries, err := os.ReadDir(profileDir)
	if err != nil {
		a.logger.Warn().Err(err).Str("dir", profileDir).Msg("Failed to read profile directory")
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".pprof" {
			continue
		}
		a.registerArtifactFile(inv, filepath.Join("profiles", entry.Name()), model.ArtifactTypeCPUProfile)
	}
}
