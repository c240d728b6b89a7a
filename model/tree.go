package model

import (
	"sort"
	"strings"
)

// Trial is one measured statistic bundle for a single named benchmark.
type Trial struct {
	// Number of samples collected
	Samples int `json:"samples"`
	// Evaluations per sample (iteration count pinned by tuning)
	Evals int64 `json:"evals"`
	// Elapsed time per evaluation, nanoseconds
	MinNs    float64 `json:"min_ns"`
	MedianNs float64 `json:"median_ns"`
	MeanNs   float64 `json:"mean_ns"`
	MaxNs    float64 `json:"max_ns"`
	// Memory allocated per evaluation, bytes
	AllocatedBytes int64 `json:"allocated_bytes"`
	// Allocations per evaluation
	Allocs int64 `json:"allocs"`
}

// Tree is a hierarchical mapping from benchmark name to either a nested
// subtree or a measured trial. The set of leaf paths is defined by the
// suite, so two trees measured at different revisions may disagree on
// shape; consumers must tolerate that.
type Tree struct {
	Trials map[string]Trial `json:"trials,omitempty"`
	Groups map[string]*Tree `json:"groups,omitempty"`
}

// NewTree returns an empty result tree.
func NewTree() *Tree {
	return &Tree{}
}

// Insert places a trial at the given path. Path segments before the last
// name nested groups; the last segment names the trial. Intermediate
// groups are created as needed.
func (t *Tree) Insert(path []string, trial Trial) {
	if len(path) == 0 {
		return
	}
	node := t
	for _, group := range path[:len(path)-1] {
		if node.Groups == nil {
			node.Groups = make(map[string]*Tree)
		}
		child, ok := node.Groups[group]
		if !ok {
			child = NewTree()
			node.Groups[group] = child
		}
		node = child
	}
	if node.Trials == nil {
		node.Trials = make(map[string]Trial)
	}
	node.Trials[path[len(path)-1]] = trial
}

// InsertPath is Insert with a "/"-joined path.
func (t *Tree) InsertPath(path string, trial Trial) {
	t.Insert(strings.Split(path, "/"), trial)
}

// Leaves flattens the tree into a map from "/"-joined leaf path to trial.
func (t *Tree) Leaves() map[string]Trial {
	out := make(map[string]Trial)
	t.collectLeaves("", out)
	return out
}

func (t *Tree) collectLeaves(prefix string, out map[string]Trial) {
	for name, trial := range t.Trials {
		out[prefix+name] = trial
	}
	for name, child := range t.Groups {
		child.collectLeaves(prefix+name+"/", out)
	}
}

// Len returns the number of leaf trials in the tree.
func (t *Tree) Len() int {
	n := len(t.Trials)
	for _, child := range t.Groups {
		n += child.Len()
	}
	return n
}

// TrialNames returns the trial names at this level, sorted.
func (t *Tree) TrialNames() []string {
	names := make([]string, 0, len(t.Trials))
	for name := range t.Trials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GroupNames returns the group names at this level, sorted.
func (t *Tree) GroupNames() []string {
	names := make([]string, 0, len(t.Groups))
	for name := range t.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
