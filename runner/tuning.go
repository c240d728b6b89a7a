package runner

// This file contains the persisted calibration parameters. Pinning the
// per-sample iteration count across revisions makes every revision
// measure identical work per sample, so medians stay comparable.

import (
	"encoding/json"
	"fmt"
	"os"
)

// Tuning holds the calibrated evaluations-per-sample for every leaf
// benchmark, keyed by "<target name>/<leaf path>".
type Tuning struct {
	Evals map[string]int64 `json:"evals"`
}

// NewTuning returns empty tuning parameters.
func NewTuning() *Tuning {
	return &Tuning{Evals: make(map[string]int64)}
}

// LoadTuning reads previously persisted tuning parameters.
func LoadTuning(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning parameters: %w", err)
	}
	var tuning Tuning
	if err := json.Unmarshal(data, &tuning); err != nil {
		return nil, fmt.Errorf("failed to parse tuning parameters %s: %w", path, err)
	}
	if tuning.Evals == nil {
		tuning.Evals = make(map[string]int64)
	}
	return &tuning, nil
}

// Save persists the tuning parameters as indented JSON.
func (t *Tuning) Save(path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tuning parameters: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write tuning parameters: %w", err)
	}
	return nil
}
