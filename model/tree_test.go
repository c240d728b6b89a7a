package model

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTreeInsert(t *testing.T) {
	tree := NewTree()
	tree.Insert([]string{"codec", "Encode"}, Trial{MedianNs: 100})
	tree.Insert([]string{"codec", "Decode", "small"}, Trial{MedianNs: 50})
	tree.InsertPath("parse", Trial{MedianNs: 10})

	require.Equal(t, 3, tree.Len())
	require.Equal(t, []string{"parse"}, tree.TrialNames())
	require.Equal(t, []string{"codec"}, tree.GroupNames())

	codec := tree.Groups["codec"]
	require.Equal(t, float64(100), codec.Trials["Encode"].MedianNs)
	require.Equal(t, float64(50), codec.Groups["Decode"].Trials["small"].MedianNs)
}

func TestTreeInsert_Overwrite(t *testing.T) {
	tree := NewTree()
	tree.InsertPath("codec/Encode", Trial{MedianNs: 100})
	tree.InsertPath("codec/Encode", Trial{MedianNs: 200})

	require.Equal(t, 1, tree.Len())
	require.Equal(t, float64(200), tree.Groups["codec"].Trials["Encode"].MedianNs)
}

func TestTreeLeaves(t *testing.T) {
	tree := NewTree()
	tree.InsertPath("codec/Encode", Trial{MedianNs: 100})
	tree.InsertPath("codec/Decode/small", Trial{MedianNs: 50})
	tree.InsertPath("parse", Trial{MedianNs: 10})

	leaves := tree.Leaves()
	require.Len(t, leaves, 3)
	require.Equal(t, float64(100), leaves["codec/Encode"].MedianNs)
	require.Equal(t, float64(50), leaves["codec/Decode/small"].MedianNs)
	require.Equal(t, float64(10), leaves["parse"].MedianNs)
}

func TestResultsRoundTrip(t *testing.T) {
	tree := NewTree()
	tree.InsertPath("codec/Encode", Trial{
		Samples:        5,
		Evals:          1000000,
		MinNs:          980,
		MedianNs:       1043,
		MeanNs:         1050,
		MaxNs:          1200,
		AllocatedBytes: 112,
		Allocs:         3,
	})
	results := &Results{
		Package:   "example.com/bench",
		Commit:    "0123456789abcdef0123456789abcdef01234567",
		Tree:      tree,
		Timestamp: time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC),
		Toolchain: "go version go1.24.6 linux/amd64",
		Config: Config{
			Revision: "main",
			Env:      map[string]string{"GOMAXPROCS": "1"},
		},
	}

	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, results.WriteFile(path))

	loaded, err := ReadResultsFile(path)
	require.NoError(t, err)
	require.Equal(t, results, loaded)
}

func TestJudgementCounts(t *testing.T) {
	judgement := &Judgement{
		Trials: map[string]TrialJudgement{
			"parse": {Time: VerdictInvariant, Memory: VerdictInvariant},
		},
		Groups: map[string]*Judgement{
			"codec": {
				Trials: map[string]TrialJudgement{
					"Encode": {Time: VerdictRegression, Memory: VerdictInvariant},
					"Decode": {Time: VerdictImprovement, Memory: VerdictInvariant},
				},
			},
		},
	}

	regressions, improvements, invariants := judgement.Counts()
	require.Equal(t, 1, regressions)
	require.Equal(t, 1, improvements)
	require.Equal(t, 1, invariants)
}

func TestConfigClone(t *testing.T) {
	config := Config{
		Revision:   "main",
		Env:        map[string]string{"GOMAXPROCS": "1"},
		Executable: []string{"/usr/local/bin/benchjudge", "runner"},
	}

	clone := config.Clone()
	clone.Revision = "other"
	clone.Env["GOMAXPROCS"] = "8"
	clone.Executable[0] = "/tmp/other"

	// mutations of the clone never reach the original
	require.Equal(t, "main", config.Revision)
	require.Equal(t, "1", config.Env["GOMAXPROCS"])
	require.Equal(t, "/usr/local/bin/benchjudge", config.Executable[0])
}
