package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Verdict classifies how a measurement moved between baseline and target.
type Verdict string

const (
	VerdictImprovement Verdict = "improvement"
	VerdictRegression  Verdict = "regression"
	VerdictInvariant   Verdict = "invariant"
)

// TrialJudgement classifies a single trial present in both compared trees.
type TrialJudgement struct {
	// target median / baseline median
	TimeRatio float64 `json:"time_ratio"`
	// target allocated bytes / baseline allocated bytes
	MemoryRatio float64 `json:"memory_ratio"`
	Time        Verdict `json:"time"`
	Memory      Verdict `json:"memory"`
}

// Judgement mirrors the shape of the compared trees. Names present in
// only one of the two inputs are listed in Added/Removed at their level
// and excluded from ratio computation. Time and Memory carry the
// aggregated verdict for the whole subtree.
type Judgement struct {
	Trials map[string]TrialJudgement `json:"trials,omitempty"`
	Groups map[string]*Judgement     `json:"groups,omitempty"`
	// Names present only in the target tree at this level
	Added []string `json:"added,omitempty"`
	// Names present only in the baseline tree at this level
	Removed []string `json:"removed,omitempty"`
	// Aggregated subtree verdicts
	Time   Verdict `json:"time"`
	Memory Verdict `json:"memory"`
}

// Counts tallies the number of leaf trials per time verdict across the
// whole judgement.
func (j *Judgement) Counts() (regressions, improvements, invariants int) {
	for _, tj := range j.Trials {
		switch tj.Time {
		case VerdictRegression:
			regressions++
		case VerdictImprovement:
			improvements++
		default:
			invariants++
		}
	}
	for _, child := range j.Groups {
		r, i, n := child.Counts()
		regressions += r
		improvements += i
		invariants += n
	}
	return regressions, improvements, invariants
}

// WriteFile persists the judgement as indented JSON.
func (j *Judgement) WriteFile(path string) error {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal judgement: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write judgement: %w", err)
	}
	return nil
}

// ReadJudgementFile loads a judgement previously written by WriteFile.
func ReadJudgementFile(path string) (*Judgement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read judgement: %w", err)
	}
	var judgement Judgement
	if err := json.Unmarshal(data, &judgement); err != nil {
		return nil, fmt.Errorf("failed to parse judgement %s: %w", path, err)
	}
	return &judgement, nil
}
