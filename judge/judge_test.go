package judge

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benchjudge/benchjudge/model"
)

func tree(leaves map[string]model.Trial) *model.Tree {
	t := model.NewTree()
	for path, trial := range leaves {
		t.InsertPath(path, trial)
	}
	return t
}

func trial(medianNs float64, allocatedBytes int64) model.Trial {
	return model.Trial{
		Samples:        5,
		Evals:          100,
		MinNs:          medianNs * 0.9,
		MedianNs:       medianNs,
		MeanNs:         medianNs * 1.02,
		MaxNs:          medianNs * 1.3,
		AllocatedBytes: allocatedBytes,
		Allocs:         allocatedBytes / 16,
	}
}

func TestJudge_RatioCorrectness(t *testing.T) {
	tests := []struct {
		name        string
		baselineNs  float64
		targetNs    float64
		wantRatio   float64
		wantVerdict model.Verdict
	}{
		{
			name:        "6 percent slower is a regression at 0.05",
			baselineNs:  100e6,
			targetNs:    106e6,
			wantRatio:   1.06,
			wantVerdict: model.VerdictRegression,
		},
		{
			name:        "4 percent slower is within the noise band",
			baselineNs:  100e6,
			targetNs:    104e6,
			wantRatio:   1.04,
			wantVerdict: model.VerdictInvariant,
		},
		{
			name:        "6 percent faster is an improvement",
			baselineNs:  100e6,
			targetNs:    94e6,
			wantRatio:   0.94,
			wantVerdict: model.VerdictImprovement,
		},
		{
			name:        "exactly at the boundary stays invariant",
			baselineNs:  100e6,
			targetNs:    105e6,
			wantRatio:   1.05,
			wantVerdict: model.VerdictInvariant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseline := tree(map[string]model.Trial{"parse": trial(tt.baselineNs, 1024)})
			target := tree(map[string]model.Trial{"parse": trial(tt.targetNs, 1024)})

			judgement := Judge(baseline, target)

			tj, ok := judgement.Trials["parse"]
			require.True(t, ok)
			require.InDelta(t, tt.wantRatio, tj.TimeRatio, 1e-9)
			require.Equal(t, tt.wantVerdict, tj.Time)
			// allocations unchanged
			require.Equal(t, model.VerdictInvariant, tj.Memory)
		})
	}
}

func TestJudge_MemoryTolerance(t *testing.T) {
	baseline := tree(map[string]model.Trial{"encode": trial(100e6, 1000)})
	target := tree(map[string]model.Trial{"encode": trial(100e6, 1020)})

	// 2% more allocated bytes regresses at the default 0.01 tolerance
	judgement := Judge(baseline, target)
	require.Equal(t, model.VerdictRegression, judgement.Trials["encode"].Memory)

	// but not at a widened tolerance
	judgement = Judge(baseline, target, WithMemoryTolerance(0.05))
	require.Equal(t, model.VerdictInvariant, judgement.Trials["encode"].Memory)
}

func TestJudge_Determinism(t *testing.T) {
	baseline := tree(map[string]model.Trial{
		"codec/encode": trial(100e6, 1024),
		"codec/decode": trial(50e6, 2048),
		"parse":        trial(10e6, 128),
	})
	target := tree(map[string]model.Trial{
		"codec/encode": trial(120e6, 1024),
		"codec/decode": trial(45e6, 2048),
		"parse":        trial(10e6, 128),
	})

	first := Judge(baseline, target)
	second := Judge(baseline, target)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Judge() is not deterministic: %+v != %+v", first, second)
	}
}

func TestJudge_Symmetry(t *testing.T) {
	baseline := tree(map[string]model.Trial{"sort": trial(100e6, 1024)})
	target := tree(map[string]model.Trial{"sort": trial(120e6, 1024)})

	forward := Judge(baseline, target)
	backward := Judge(target, baseline)

	require.Equal(t, model.VerdictRegression, forward.Trials["sort"].Time)
	require.Equal(t, model.VerdictImprovement, backward.Trials["sort"].Time)
	require.InDelta(t, 1.0, forward.Trials["sort"].TimeRatio*backward.Trials["sort"].TimeRatio, 1e-9)
}

func TestJudge_TreeShapeTolerance(t *testing.T) {
	baseline := tree(map[string]model.Trial{
		"old":    trial(100e6, 1024),
		"shared": trial(50e6, 512),
	})
	target := tree(map[string]model.Trial{
		"new":    trial(10e6, 64),
		"shared": trial(50e6, 512),
	})

	judgement := Judge(baseline, target)

	require.Equal(t, []string{"new"}, judgement.Added)
	require.Equal(t, []string{"old"}, judgement.Removed)
	// only the shared leaf produces a ratio
	require.Len(t, judgement.Trials, 1)
	require.Contains(t, judgement.Trials, "shared")
}

func TestJudge_GroupShapeTolerance(t *testing.T) {
	baseline := tree(map[string]model.Trial{"codec/encode": trial(100e6, 1024)})
	target := tree(map[string]model.Trial{"transport/send": trial(10e6, 64)})

	judgement := Judge(baseline, target)

	require.Equal(t, []string{"transport"}, judgement.Added)
	require.Equal(t, []string{"codec"}, judgement.Removed)
	require.Empty(t, judgement.Trials)
	require.Equal(t, model.VerdictInvariant, judgement.Time)
}

func TestJudge_Aggregation(t *testing.T) {
	baseline := tree(map[string]model.Trial{
		"codec/encode": trial(100e6, 1024),
		"codec/decode": trial(50e6, 2048),
		"parse":        trial(10e6, 128),
	})
	target := tree(map[string]model.Trial{
		"codec/encode": trial(130e6, 1024), // regression
		"codec/decode": trial(40e6, 2048),  // improvement
		"parse":        trial(10e6, 128),   // invariant
	})

	judgement := Judge(baseline, target)

	// regression dominates at every level above the regressing leaf
	require.Equal(t, model.VerdictRegression, judgement.Time)
	require.Equal(t, model.VerdictRegression, judgement.Groups["codec"].Time)

	// with the regressing leaf gone, improvement dominates invariant
	target.Groups["codec"].Trials["encode"] = trial(100e6, 1024)
	judgement = Judge(baseline, target)
	require.Equal(t, model.VerdictImprovement, judgement.Time)
	require.Equal(t, model.VerdictImprovement, judgement.Groups["codec"].Time)
}

func TestJudge_AggregationOverride(t *testing.T) {
	baseline := tree(map[string]model.Trial{
		"a": trial(100e6, 1024),
		"b": trial(100e6, 1024),
	})
	target := tree(map[string]model.Trial{
		"a": trial(130e6, 1024),
		"b": trial(70e6, 1024),
	})

	// a policy that only reports regression when every leaf regressed
	unanimous := func(leaves []model.Verdict) model.Verdict {
		if len(leaves) == 0 {
			return model.VerdictInvariant
		}
		for _, v := range leaves {
			if v != model.VerdictRegression {
				return RegressionDominates(leaves)
			}
		}
		return model.VerdictRegression
	}

	judgement := Judge(baseline, target, WithAggregation(unanimous))
	require.Equal(t, model.VerdictRegression, judgement.Trials["a"].Time)
	require.Equal(t, model.VerdictImprovement, judgement.Trials["b"].Time)
	require.Equal(t, model.VerdictRegression, judgement.Time)
}

func TestJudge_ZeroBaseline(t *testing.T) {
	baseline := tree(map[string]model.Trial{"alloc": {Samples: 5, Evals: 1, MedianNs: 100e6}})
	target := tree(map[string]model.Trial{"alloc": {Samples: 5, Evals: 1, MedianNs: 100e6, AllocatedBytes: 64}})

	judgement := Judge(baseline, target)

	// allocations appearing where there were none is a memory regression
	require.Equal(t, model.VerdictRegression, judgement.Trials["alloc"].Memory)

	// zero over zero is invariant
	target.Trials["alloc"] = model.Trial{Samples: 5, Evals: 1, MedianNs: 100e6}
	judgement = Judge(baseline, target)
	require.Equal(t, model.VerdictInvariant, judgement.Trials["alloc"].Memory)
	require.InDelta(t, 1.0, judgement.Trials["alloc"].MemoryRatio, 1e-9)
}
