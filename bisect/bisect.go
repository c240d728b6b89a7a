// Package bisect finds the earliest revision within an ordered
// candidate list at which a regression first appears, using the
// statistical judge as its oracle and the harness to produce results at
// each probed revision.
package bisect

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/benchjudge/benchjudge/harness"
	"github.com/benchjudge/benchjudge/judge"
	"github.com/benchjudge/benchjudge/model"
)

// ErrInvalidRange means the regression predicate does not hold between
// the good and bad endpoints, so there is nothing to search for.
var ErrInvalidRange = errors.New("no regression between good and bad revisions")

// InconclusiveError reports a candidate revision the harness could not
// execute (e.g. the suite does not build there). The search never
// guesses a direction for such a revision; it fails carrying the trace
// collected so far.
type InconclusiveError struct {
	Revision string
	Trace    []Step
	Err      error
}

func (e *InconclusiveError) Error() string {
	return fmt.Sprintf("revision %s is inconclusive: %v", e.Revision, e.Err)
}

func (e *InconclusiveError) Unwrap() error {
	return e.Err
}

// Predicate decides whether a judgement exhibits the regression under
// test.
type Predicate func(*model.Judgement) bool

// AnyTimeRegression holds when any leaf in the tree regressed in time.
func AnyTimeRegression(j *model.Judgement) bool {
	return j.Time == model.VerdictRegression
}

// AnyMemoryRegression holds when any leaf regressed in allocated memory.
func AnyMemoryRegression(j *model.Judgement) bool {
	return j.Memory == model.VerdictRegression
}

// Executor produces benchmark results at a revision. Satisfied by
// *harness.Executor.
type Executor interface {
	Execute(ctx context.Context, req harness.Request) (*model.Results, error)
}

// Step is one evaluated revision, appended in evaluation order. The
// search visits revisions non-monotonically, so this trace is essential
// output, not a debugging aid.
type Step struct {
	Revision  string `json:"revision"`
	Regressed bool   `json:"regressed"`
}

// Outcome is a completed search.
type Outcome struct {
	// Earliest revision in the candidate list exhibiting the regression
	Culprit string `json:"culprit"`
	// Evaluations in the order they happened
	Trace []Step `json:"trace"`
}

// Params configures one search.
type Params struct {
	// Known-good and known-bad revisions bounding the range
	Good string
	Bad  string
	// Candidate revisions ordered chronologically from just after Good
	// up to and including Bad
	Commits []string
	// Template for harness executions; Config.Revision is overwritten
	// per candidate
	Request harness.Request
	// Precomputed endpoint results. When both are provided the range
	// check issues no harness executions.
	GoodResults *model.Results
	BadResults  *model.Results
	// Judging parameters applied to every comparison
	JudgeOptions []judge.Option
	// Regression predicate (default AnyTimeRegression)
	Predicate Predicate
}

// Search drives bisection runs.
type Search struct {
	logger zerolog.Logger
	exec   Executor
}

// New creates a search using the given executor as its harness.
func New(logger zerolog.Logger, exec Executor) *Search {
	return &Search{logger: logger, exec: exec}
}

// Run bisects the candidate list. The good revision's results are
// computed once and serve as the fixed baseline for every judgement.
// Harness executions are strictly sequential; candidates share one
// working tree.
func (s *Search) Run(ctx context.Context, p Params) (*Outcome, error) {
	if len(p.Commits) == 0 {
		return nil, fmt.Errorf("empty candidate list for %s..%s", p.Good, p.Bad)
	}
	predicate := p.Predicate
	if predicate == nil {
		predicate = AnyTimeRegression
	}

	var trace []Step

	// Executed revisions are memoized so a candidate list containing
	// the bad endpoint does not measure it twice.
	cache := make(map[string]*model.Results)

	baseline := p.GoodResults
	if baseline == nil {
		var err error
		baseline, err = s.resultsAt(ctx, &p, cache, p.Good)
		if err != nil {
			return nil, &InconclusiveError{Revision: p.Good, Trace: trace, Err: err}
		}
	}
	cache[p.Good] = baseline

	bad := p.BadResults
	if bad == nil {
		var err error
		bad, err = s.resultsAt(ctx, &p, cache, p.Bad)
		if err != nil {
			return nil, &InconclusiveError{Revision: p.Bad, Trace: trace, Err: err}
		}
	}
	cache[p.Bad] = bad

	// Range check: bisecting a range whose endpoints do not disagree
	// would walk to an arbitrary commit.
	regressed := predicate(judge.Judge(baseline.Tree, bad.Tree, p.JudgeOptions...))
	trace = append(trace, Step{Revision: p.Bad, Regressed: regressed})
	if !regressed {
		return nil, fmt.Errorf("%s..%s: %w", p.Good, p.Bad, ErrInvalidRange)
	}

	lo, hi := 0, len(p.Commits)-1
	for lo < hi {
		mid := (lo + hi) / 2
		revision := p.Commits[mid]

		results, err := s.resultsAt(ctx, &p, cache, revision)
		if err != nil {
			return nil, &InconclusiveError{Revision: revision, Trace: trace, Err: err}
		}

		regressed := predicate(judge.Judge(baseline.Tree, results.Tree, p.JudgeOptions...))
		trace = append(trace, Step{Revision: revision, Regressed: regressed})
		s.logger.Info().
			Str("revision", revision).
			Bool("regressed", regressed).
			Int("lo", lo).
			Int("hi", hi).
			Msg("Evaluated candidate revision")

		if regressed {
			hi = mid
		} else {
			lo = mid + 1
		}
	}

	culprit := p.Commits[lo]
	s.logger.Info().Str("culprit", culprit).Int("evaluations", len(trace)).Msg("Bisection complete")
	return &Outcome{Culprit: culprit, Trace: trace}, nil
}

func (s *Search) resultsAt(ctx context.Context, p *Params, cache map[string]*model.Results, revision string) (*model.Results, error) {
	if results, ok := cache[revision]; ok {
		return results, nil
	}
	req := p.Request
	req.Config = p.Request.Config.Clone()
	req.Config.Revision = revision
	results, err := s.exec.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	cache[revision] = results
	return results, nil
}
