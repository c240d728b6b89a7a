// Package harness runs the benchmark suite at a specified revision in
// a separate process and guarantees the repository ends in its
// original state regardless of success or failure.
package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/mod/modfile"
	"golang.org/x/sync/semaphore"

	"github.com/benchjudge/benchjudge/model"
	"github.com/benchjudge/benchjudge/runner"
	"github.com/benchjudge/benchjudge/vcs"
)

// Request describes one harness execution.
type Request struct {
	// Repository root of the benchmarked package
	PkgPath string
	// How and at which revision to run
	Config model.Config
	// Suite manifest path
	SuitePath string
	// Tuning parameter file handed to the child
	TuningPath string
	// Force recalibration of tuning parameters
	Retune bool
	// Directory for per-benchmark CPU profiles (empty disables profiling)
	ProfileDir string
}

// SinkFactory supplies per-run output sinks for the child's stdout and
// stderr streams, keyed by label ("stdout" or "stderr"). Injected at
// construction so callers control where live output goes.
type SinkFactory func(label string) io.Writer

// Option adjusts executor construction.
type Option func(*Executor)

// WithSinkFactory overrides the default tee to os.Stdout/os.Stderr.
func WithSinkFactory(factory SinkFactory) Option {
	return func(e *Executor) { e.sinks = factory }
}

// Executor runs benchmark suites in isolated child processes.
type Executor struct {
	logger zerolog.Logger
	sinks  SinkFactory
}

// New creates an executor.
func New(logger zerolog.Logger, opts ...Option) *Executor {
	e := &Executor{
		logger: logger,
		sinks: func(label string) io.Writer {
			if label == "stdout" {
				return os.Stdout
			}
			return os.Stderr
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Checkout mutates a single shared working tree, so at most one
// execution per repository path may be in flight. Different paths are
// independent.
var repoLocks sync.Map // abs repository path -> *semaphore.Weighted

func repoLock(path string) *semaphore.Weighted {
	actual, _ := repoLocks.LoadOrStore(path, semaphore.NewWeighted(1))
	return actual.(*semaphore.Weighted)
}

// Execute runs the suite per the request and returns the completed
// results. When a revision is set the repository is checked out to it
// and restored to the original HEAD on every exit path; a failed
// restore is surfaced as a warning, never as an error, since the
// measurement itself already succeeded.
func (e *Executor) Execute(ctx context.Context, req Request) (*model.Results, error) {
	suitePath, err := filepath.Abs(req.SuitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve suite path: %w", err)
	}
	if _, err := os.Stat(suitePath); err != nil {
		return nil, fmt.Errorf("suite manifest not found: %w", err)
	}
	pkgPath, err := filepath.Abs(req.PkgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve package path: %w", err)
	}

	lock := repoLock(pkgPath)
	if err := lock.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire repository lock: %w", err)
	}
	defer lock.Release(1)

	if req.Config.Revision != "" {
		if !vcs.IsRepository(pkgPath) {
			return nil, fmt.Errorf("%s: %w", pkgPath, ErrNotARepository)
		}
		dirty, err := vcs.IsDirty(pkgPath)
		if err != nil {
			return nil, err
		}
		if dirty {
			return nil, fmt.Errorf("%s: %w", pkgPath, ErrDirtyRepository)
		}
		originalHead, err := vcs.CurrentRevision(pkgPath)
		if err != nil {
			return nil, err
		}
		if err := vcs.Checkout(pkgPath, req.Config.Revision); err != nil {
			return nil, err
		}
		e.logger.Info().
			Str("revision", req.Config.Revision).
			Str("repository", pkgPath).
			Msg("Checked out benchmark revision")
		defer func() {
			if err := vcs.Checkout(pkgPath, originalHead); err != nil {
				e.logger.Warn().
					Err(err).
					Str("revision", originalHead).
					Str("repository", pkgPath).
					Msg("Failed to restore original revision")
				return
			}
			e.logger.Debug().Str("revision", originalHead).Msg("Restored original revision")
		}()
	}

	// The label must reflect the revision actually benchmarked, so it
	// is computed after the checkout above.
	commit := commitLabel(pkgPath)

	report, err := e.runChild(ctx, req, pkgPath, suitePath)
	if err != nil {
		return nil, err
	}

	return &model.Results{
		Package:   packageIdentity(pkgPath),
		Commit:    commit,
		Tree:      report.Tree,
		Timestamp: time.Now(),
		Toolchain: report.Toolchain,
		Config:    req.Config,
	}, nil
}

// runChild spawns the configured executable, waits for it and parses
// the report envelope it leaves at a scratch output path.
func (e *Executor) runChild(ctx context.Context, req Request, pkgPath, suitePath string) (*runner.Report, error) {
	outPath := filepath.Join(os.TempDir(), fmt.Sprintf("benchjudge-%s.json", uuid.NewString()))
	defer os.Remove(outPath)

	tuningPath, err := filepath.Abs(req.TuningPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tuning path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(tuningPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create tuning directory: %w", err)
	}

	argv := req.Config.Executable
	if len(argv) == 0 {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate own binary: %w", err)
		}
		argv = []string{self, "runner"}
	}
	args := append(append([]string(nil), argv[1:]...),
		"--suite", suitePath,
		"--out", outPath,
		"--tune", tuningPath,
		"--pkg", pkgPath,
	)
	if req.Retune {
		args = append(args, "--retune")
	}
	if req.ProfileDir != "" {
		profileDir, err := filepath.Abs(req.ProfileDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve profile directory: %w", err)
		}
		if err := os.MkdirAll(profileDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create profile directory: %w", err)
		}
		args = append(args, "--profile-dir", profileDir)
	}

	cmd := exec.CommandContext(ctx, argv[0], args...)
	cmd.Dir = pkgPath
	env := os.Environ()
	for k, v := range req.Config.Env {
		env = append(env, k+"="+v)
	}
	cmd.Env = env

	// Capture stdout and stderr while streaming them to the caller's sinks
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = io.MultiWriter(e.sinks("stdout"), &stdoutBuf)
	cmd.Stderr = io.MultiWriter(e.sinks("stderr"), &stderrBuf)

	e.logger.Debug().
		Str("command", shellescape.QuoteCommand(append([]string{argv[0]}, args...))).
		Str("dir", pkgPath).
		Msg("Launching benchmark run")

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			// A classifiable failure leaves a report behind even on
			// nonzero exit
			if report, rerr := runner.ReadReportFile(outPath); rerr == nil && report.Error != nil && report.Error.Kind == runner.ErrorKindMissingSuite {
				return nil, fmt.Errorf("%s: %w", report.Error.Message, ErrMissingSuite)
			}
			return nil, &ExecutionError{
				ExitCode: exitErr.ExitCode(),
				Output:   stdoutBuf.String() + stderrBuf.String(),
			}
		}
		return nil, fmt.Errorf("failed to launch benchmark run: %w", err)
	}

	report, err := runner.ReadReportFile(outPath)
	if err != nil {
		return nil, &ProtocolError{Path: outPath, Err: err}
	}
	if report.Error != nil {
		return nil, &ProtocolError{Path: outPath, Err: fmt.Errorf("child reported %s: %s", report.Error.Kind, report.Error.Message)}
	}
	if report.Tree == nil {
		return nil, &ProtocolError{Path: outPath, Err: fmt.Errorf("report carries no result tree")}
	}
	return report, nil
}

// commitLabel resolves the commit identity of the tree as benchmarked.
func commitLabel(pkgPath string) string {
	if !vcs.IsRepository(pkgPath) {
		return model.CommitNonGitRepo
	}
	if dirty, err := vcs.IsDirty(pkgPath); err != nil || dirty {
		return model.CommitDirty
	}
	sha, err := vcs.CurrentRevision(pkgPath)
	if err != nil {
		return model.CommitNonGitRepo
	}
	return sha
}

// packageIdentity resolves the benchmarked module's path from go.mod,
// falling back to the directory name.
func packageIdentity(pkgPath string) string {
	data, err := os.ReadFile(filepath.Join(pkgPath, "go.mod"))
	if err == nil {
		if module := modfile.ModulePath(data); module != "" {
			return module
		}
	}
	return filepath.Base(pkgPath)
}
