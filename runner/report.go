package runner

// This file contains the report envelope exchanged between the child
// runner process and the parent harness. The parent only ever parses
// this file; everything else about the run stays inside the child.

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/benchjudge/benchjudge/model"
)

// Error kinds the child can report through the envelope.
const (
	ErrorKindMissingSuite = "missing_suite"
)

// Report is the envelope the child serializes to the designated output
// path after executing the suite.
type Report struct {
	// "go version" output of the toolchain the suite ran under
	Toolchain string `json:"toolchain,omitempty"`
	// Measured benchmark tree (absent when Error is set)
	Tree *model.Tree `json:"tree,omitempty"`
	// Set when the child failed in a way the parent should classify
	Error *ReportError `json:"error,omitempty"`
}

// ReportError is a machine-readable failure inside the child.
type ReportError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// WriteReportFile serializes the report to path.
func WriteReportFile(path string, report *Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ReadReportFile parses a report previously written by the child.
func ReadReportFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &report, nil
}
