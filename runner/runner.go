// Package runner is the child side of the harness protocol: the
// measurement engine executed in a fresh process per run. It loads the
// suite manifest, calibrates or reloads per-benchmark tuning
// parameters, measures every leaf benchmark through go test -bench and
// serializes the resulting tree to the designated output path.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/pprof/profile"
	"github.com/rs/zerolog"

	"github.com/benchjudge/benchjudge/model"
)

// Options configures one engine run.
type Options struct {
	// Repository root of the benchmarked package
	PkgPath string
	// Suite manifest path
	SuitePath string
	// Tuning parameter file (loaded unless Retune, always rewritten
	// after calibration)
	TuningPath string
	// Force recalibration even when tuning parameters exist
	Retune bool
	// Where the report envelope is written
	OutPath string
	// Directory for per-benchmark CPU profiles (empty disables profiling)
	ProfileDir string
}

// Runner executes a benchmark suite inside the child process.
type Runner struct {
	logger zerolog.Logger
}

// New creates a runner.
func New(logger zerolog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes the suite and writes the report envelope. A non-nil
// error means the child should exit nonzero; when the failure is
// classifiable (missing suite) the envelope carries it as well.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	manifest, err := LoadManifest(opts.SuitePath)
	if err != nil {
		return err
	}

	toolchain, err := r.goVersion(ctx, opts.PkgPath)
	if err != nil {
		return err
	}

	if len(manifest.Suite) == 0 {
		report := &Report{
			Toolchain: toolchain,
			Error: &ReportError{
				Kind:    ErrorKindMissingSuite,
				Message: fmt.Sprintf("suite manifest %s defines no benchmarks", opts.SuitePath),
			},
		}
		if err := WriteReportFile(opts.OutPath, report); err != nil {
			return err
		}
		return fmt.Errorf("suite manifest %s defines no benchmarks", opts.SuitePath)
	}

	tuning, tuningDirty := r.loadTuning(opts)

	tree := model.NewTree()
	for _, target := range manifest.Suite {
		leaves, err := r.discover(ctx, opts, manifest, target)
		if err != nil {
			return err
		}
		if len(leaves) == 0 {
			r.logger.Warn().Str("target", target.Name).Str("pattern", target.Pattern).Msg("No benchmarks matched")
			continue
		}

		if r.needsCalibration(tuning, target, leaves) {
			if err := r.calibrate(ctx, opts, manifest, target, tuning); err != nil {
				return err
			}
			tuningDirty = true
		}

		for _, leaf := range leaves {
			evals := tuning.Evals[tuningKey(target, leaf)]
			if evals <= 0 {
				evals = 1
			}
			trial, err := r.measure(ctx, opts, manifest, target, leaf, evals)
			if err != nil {
				return err
			}
			path := append([]string{target.Name}, strings.Split(leaf, "/")...)
			tree.Insert(path, trial)
		}
	}

	if tuningDirty {
		if err := tuning.Save(opts.TuningPath); err != nil {
			return err
		}
		r.logger.Debug().Str("path", opts.TuningPath).Int("leaves", len(tuning.Evals)).Msg("Persisted tuning parameters")
	}

	return WriteReportFile(opts.OutPath, &Report{Toolchain: toolchain, Tree: tree})
}

// loadTuning returns prior tuning parameters, or empty ones when
// retuning was requested or no file exists yet. The second return
// reports whether the file must be rewritten.
func (r *Runner) loadTuning(opts Options) (*Tuning, bool) {
	if !opts.Retune {
		tuning, err := LoadTuning(opts.TuningPath)
		if err == nil {
			r.logger.Debug().Str("path", opts.TuningPath).Int("leaves", len(tuning.Evals)).Msg("Loaded tuning parameters")
			return tuning, false
		}
		if !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn().Err(err).Msg("Ignoring unreadable tuning parameters")
		}
	}
	return NewTuning(), true
}

func (r *Runner) needsCalibration(tuning *Tuning, target Target, leaves []string) bool {
	for _, leaf := range leaves {
		if tuning.Evals[tuningKey(target, leaf)] <= 0 {
			return true
		}
	}
	return false
}

// discover enumerates the leaf benchmarks a target's pattern matches,
// using a single-iteration run so discovery stays cheap.
func (r *Runner) discover(ctx context.Context, opts Options, manifest *Manifest, target Target) ([]string, error) {
	args := r.testArgs(manifest, target, target.Pattern, "1x", 1, false)
	output, err := r.goTest(ctx, opts.PkgPath, args)
	if err != nil {
		return nil, fmt.Errorf("benchmark discovery for target %s failed: %w", target.Name, err)
	}
	measurements, err := ParseOutput(strings.NewReader(output))
	if err != nil {
		return nil, err
	}
	leaves := make([]string, 0, len(measurements))
	for _, m := range measurements {
		leaves = append(leaves, m.Name)
	}
	sort.Strings(leaves)
	return leaves, nil
}

// calibrate runs the target at its configured benchtime and records the
// iteration count go test settled on for every leaf. Those counts are
// pinned as evaluations per sample for all future runs.
func (r *Runner) calibrate(ctx context.Context, opts Options, manifest *Manifest, target Target, tuning *Tuning) error {
	r.logger.Info().Str("target", target.Name).Str("benchtime", target.Benchtime).Msg("Calibrating benchmarks")
	args := r.testArgs(manifest, target, target.Pattern, target.Benchtime, 1, false)
	output, err := r.goTest(ctx, opts.PkgPath, args)
	if err != nil {
		return fmt.Errorf("calibration for target %s failed: %w", target.Name, err)
	}
	measurements, err := ParseOutput(strings.NewReader(output))
	if err != nil {
		return err
	}
	for _, m := range measurements {
		tuning.Evals[tuningKey(target, m.Name)] = m.Iterations
	}
	return nil
}

// measure runs one leaf benchmark with the pinned evaluation count and
// aggregates the collected samples into a trial.
func (r *Runner) measure(ctx context.Context, opts Options, manifest *Manifest, target Target, leaf string, evals int64) (model.Trial, error) {
	args := r.testArgs(manifest, target, benchPattern(leaf), fmt.Sprintf("%dx", evals), target.Samples, true)

	var profilePath string
	if opts.ProfileDir != "" {
		profilePath = filepath.Join(opts.ProfileDir, profileName(target, leaf))
		args = append(args, "-cpuprofile", profilePath)
	}

	output, err := r.goTest(ctx, opts.PkgPath, args)
	if err != nil {
		return model.Trial{}, fmt.Errorf("measurement of %s/%s failed: %w", target.Name, leaf, err)
	}
	measurements, err := ParseOutput(strings.NewReader(output))
	if err != nil {
		return model.Trial{}, err
	}
	// -count produces one line per sample for the same leaf
	var samples []Measurement
	for _, m := range measurements {
		if m.Name == leaf {
			samples = append(samples, m)
		}
	}
	if len(samples) == 0 {
		return model.Trial{}, fmt.Errorf("no samples for %s/%s in go test output", target.Name, leaf)
	}

	if profilePath != "" {
		r.validateProfile(profilePath)
	}

	return aggregate(samples, evals), nil
}

// aggregate folds per-sample measurements into one trial. Latency
// statistics come from an HdrHistogram over the per-sample ns/op
// values; allocation statistics take the per-sample median.
func aggregate(samples []Measurement, evals int64) model.Trial {
	// 1ns to 10min per evaluation, 3 significant figures
	hist := hdrhistogram.New(1, int64(10*time.Minute), 3)
	allocatedBytes := make([]int64, 0, len(samples))
	allocs := make([]int64, 0, len(samples))
	for _, m := range samples {
		v := int64(math.Round(m.NsPerOp))
		if v < 1 {
			v = 1
		}
		if v > hist.HighestTrackableValue() {
			v = hist.HighestTrackableValue()
		}
		_ = hist.RecordValue(v)
		allocatedBytes = append(allocatedBytes, m.BytesPerOp)
		allocs = append(allocs, m.AllocsPerOp)
	}
	return model.Trial{
		Samples:        len(samples),
		Evals:          evals,
		MinNs:          float64(hist.Min()),
		MedianNs:       float64(hist.ValueAtQuantile(50)),
		MeanNs:         hist.Mean(),
		MaxNs:          float64(hist.Max()),
		AllocatedBytes: median(allocatedBytes),
		Allocs:         median(allocs),
	}
}

func median(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)/2]
}

// testArgs assembles the go test invocation for a target.
func (r *Runner) testArgs(manifest *Manifest, target Target, bench, benchtime string, count int, benchmem bool) []string {
	args := []string{"test", "-run", "^$", "-bench", bench, "-benchtime", benchtime}
	if count > 1 {
		args = append(args, "-count", fmt.Sprintf("%d", count))
	}
	if benchmem {
		args = append(args, "-benchmem")
	}
	if manifest.Timeout != "" {
		args = append(args, "-timeout", manifest.Timeout)
	}
	return append(args, pkgArg(target.Package))
}

func pkgArg(pkg string) string {
	if pkg == "." || strings.HasPrefix(pkg, "./") {
		return pkg
	}
	return "./" + pkg
}

func tuningKey(target Target, leaf string) string {
	return target.Name + "/" + leaf
}

func profileName(target Target, leaf string) string {
	flat := strings.ReplaceAll(target.Name+"_"+leaf, "/", "_")
	return flat + ".pprof"
}

func (r *Runner) goTest(ctx context.Context, dir string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	r.logger.Debug().
		Str("command", shellescape.QuoteCommand(append([]string{"go"}, args...))).
		Str("dir", dir).
		Msg("Executing go test")

	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("go %s failed: %w (output: %s)", args[0], err, out.String())
	}
	return out.String(), nil
}

// goVersion returns the toolchain build identity recorded in results.
func (r *Runner) goVersion(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "go", "version")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get go version: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// validateProfile parses a freshly written CPU profile so corrupt
// profiles surface here instead of at view time. Validation failures
// only warn; the measurement itself already succeeded.
func (r *Runner) validateProfile(path string) {
	f, err := os.Open(path)
	if err != nil {
		r.logger.Warn().Err(err).Str("profile", path).Msg("Failed to open CPU profile")
		return
	}
	defer f.Close()

	prof, err := profile.Parse(f)
	if err != nil {
		r.logger.Warn().Err(err).Str("profile", path).Msg("Failed to parse CPU profile")
		return
	}
	r.logger.Debug().Str("profile", path).Int("samples", len(prof.Sample)).Msg("CPU profile captured")
}
