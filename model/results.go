package model

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Commit labels used when the benchmarked tree is not a clean checkout.
// The label always reflects the revision actually benchmarked, computed
// after any requested checkout.
const (
	CommitDirty      = "dirty"
	CommitNonGitRepo = "non gitrepo"
)

// Results is the output of one completed harness execution. It is
// created once per run and immutable thereafter.
type Results struct {
	// Module path of the benchmarked package (directory name if no go.mod)
	Package string `json:"package"`
	// Resolved sha, or CommitDirty / CommitNonGitRepo
	Commit string `json:"commit"`
	// Measured benchmark tree
	Tree *Tree `json:"tree"`
	// Timestamp when the run completed
	Timestamp time.Time `json:"timestamp"`
	// Toolchain build identity of the child process ("go version" output)
	Toolchain string `json:"toolchain"`
	// Config the run was executed with
	Config Config `json:"config"`
}

// WriteFile persists the results as indented JSON.
func (r *Results) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

// ReadResultsFile loads results previously written by WriteFile.
func ReadResultsFile(path string) (*Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	var results Results
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse results %s: %w", path, err)
	}
	return &results, nil
}
