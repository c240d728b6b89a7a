// Package judge classifies whether performance moved meaningfully
// between a baseline and a target result tree, tolerant of measurement
// noise. Judging is a pure function of its inputs: no I/O, no hidden
// state, safe to memoize.
package judge

import (
	"math"

	"github.com/benchjudge/benchjudge/model"
)

// Default tolerances. Time measurements are noisier than allocation
// counts, which are near-deterministic.
const (
	DefaultTimeTolerance   = 0.05
	DefaultMemoryTolerance = 0.01
)

// Aggregation derives a subtree verdict from the verdicts of its
// descendant leaves.
type Aggregation func(leaves []model.Verdict) model.Verdict

// RegressionDominates is the default aggregation: any regression makes
// the subtree a regression, else any improvement makes it an
// improvement, else it is invariant. It answers "did anything regress
// anywhere in this subtree?" without enumerating leaves.
func RegressionDominates(leaves []model.Verdict) model.Verdict {
	verdict := model.VerdictInvariant
	for _, v := range leaves {
		switch v {
		case model.VerdictRegression:
			return model.VerdictRegression
		case model.VerdictImprovement:
			verdict = model.VerdictImprovement
		}
	}
	return verdict
}

type config struct {
	timeTolerance   float64
	memoryTolerance float64
	aggregate       Aggregation
}

// Option adjusts judging parameters.
type Option func(*config)

// WithTimeTolerance sets the relative noise band for time verdicts.
func WithTimeTolerance(tolerance float64) Option {
	return func(c *config) { c.timeTolerance = tolerance }
}

// WithMemoryTolerance sets the relative noise band for memory verdicts.
func WithMemoryTolerance(tolerance float64) Option {
	return func(c *config) { c.memoryTolerance = tolerance }
}

// WithAggregation overrides the subtree verdict policy.
func WithAggregation(aggregate Aggregation) Option {
	return func(c *config) { c.aggregate = aggregate }
}

// Judge compares target against baseline and classifies every trial
// present in both trees. Trials or groups present in only one tree are
// reported as added/removed at their level and excluded from ratios.
func Judge(baseline, target *model.Tree, opts ...Option) *model.Judgement {
	cfg := config{
		timeTolerance:   DefaultTimeTolerance,
		memoryTolerance: DefaultMemoryTolerance,
		aggregate:       RegressionDominates,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if baseline == nil {
		baseline = model.NewTree()
	}
	if target == nil {
		target = model.NewTree()
	}
	judgement, _, _ := compare(baseline, target, &cfg)
	return judgement
}

// compare walks both trees by name union at every level and returns the
// judgement for the subtree together with the descendant leaf verdicts
// feeding the parent's aggregation.
func compare(baseline, target *model.Tree, cfg *config) (*model.Judgement, []model.Verdict, []model.Verdict) {
	judgement := &model.Judgement{}
	var timeLeaves, memoryLeaves []model.Verdict

	for _, name := range target.TrialNames() {
		trial := target.Trials[name]
		base, ok := baseline.Trials[name]
		if !ok {
			judgement.Added = append(judgement.Added, name)
			continue
		}
		tj := judgeTrial(base, trial, cfg)
		if judgement.Trials == nil {
			judgement.Trials = make(map[string]model.TrialJudgement)
		}
		judgement.Trials[name] = tj
		timeLeaves = append(timeLeaves, tj.Time)
		memoryLeaves = append(memoryLeaves, tj.Memory)
	}
	for _, name := range baseline.TrialNames() {
		if _, ok := target.Trials[name]; !ok {
			judgement.Removed = append(judgement.Removed, name)
		}
	}

	for _, name := range target.GroupNames() {
		child := target.Groups[name]
		base, ok := baseline.Groups[name]
		if !ok {
			judgement.Added = append(judgement.Added, name)
			continue
		}
		childJudgement, childTime, childMemory := compare(base, child, cfg)
		if judgement.Groups == nil {
			judgement.Groups = make(map[string]*model.Judgement)
		}
		judgement.Groups[name] = childJudgement
		timeLeaves = append(timeLeaves, childTime...)
		memoryLeaves = append(memoryLeaves, childMemory...)
	}
	for _, name := range baseline.GroupNames() {
		if _, ok := target.Groups[name]; !ok {
			judgement.Removed = append(judgement.Removed, name)
		}
	}

	judgement.Time = cfg.aggregate(timeLeaves)
	judgement.Memory = cfg.aggregate(memoryLeaves)
	return judgement, timeLeaves, memoryLeaves
}

func judgeTrial(baseline, target model.Trial, cfg *config) model.TrialJudgement {
	timeRatio := ratio(target.MedianNs, baseline.MedianNs)
	memoryRatio := ratio(float64(target.AllocatedBytes), float64(baseline.AllocatedBytes))
	return model.TrialJudgement{
		TimeRatio:   timeRatio,
		MemoryRatio: memoryRatio,
		Time:        classify(timeRatio, cfg.timeTolerance),
		Memory:      classify(memoryRatio, cfg.memoryTolerance),
	}
}

// ratio computes target/baseline with a zero-baseline rule: both zero
// is a 1.0 (nothing changed); something over zero is clamped to the
// largest finite ratio so it classifies as a regression and still
// survives JSON serialization.
func ratio(target, baseline float64) float64 {
	if baseline == 0 {
		if target == 0 {
			return 1.0
		}
		return math.MaxFloat64
	}
	return target / baseline
}

func classify(ratio, tolerance float64) model.Verdict {
	switch {
	case ratio > 1+tolerance:
		return model.VerdictRegression
	case ratio < 1-tolerance:
		return model.VerdictImprovement
	default:
		return model.VerdictInvariant
	}
}
