package cli

// This file contains flag processing shared by the run, judge and
// bisect commands.

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/benchjudge/benchjudge/harness"
	"github.com/benchjudge/benchjudge/model"
)

// buildRequest assembles the harness request common to all executing
// commands from the shared suite flags.
func (a *App) buildRequest(ctx *cli.Context, pkgPath string) (harness.Request, error) {
	env, err := parseEnv(ctx.StringSlice("env"))
	if err != nil {
		return harness.Request{}, err
	}

	tuningPath := ctx.String("tuning")
	if tuningPath == "" {
		tuningPath = filepath.Join(pkgPath, ".benchjudge", "tuning.json")
	}

	return harness.Request{
		PkgPath:    pkgPath,
		SuitePath:  ctx.String("suite"),
		TuningPath: tuningPath,
		Retune:     ctx.Bool("retune"),
		Config: model.Config{
			Env:        env,
			Executable: ctx.StringSlice("exec"),
		},
	}, nil
}

// parseEnv turns repeated KEY=VALUE flags into a map.
func parseEnv(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(values))
	for _, value := range values {
		key, val, ok := strings.Cut(value, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid environment override %q (expected KEY=VALUE)", value)
		}
		env[key] = val
	}
	return env, nil
}
