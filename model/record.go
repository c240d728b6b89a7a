package model

import "time"

// RecordType represents the type of history record
type RecordType string

const (
	RecordTypeRun    RecordType = "run"
	RecordTypeJudge  RecordType = "judge"
	RecordTypeBisect RecordType = "bisect"
)

// Record represents a single benchjudge invocation (run, judge or bisect).
// It contains common fields shared by all invocation types.
type Record struct {
	// Unique ID for this invocation (16 random bytes, hex encoded)
	ID string `json:"id"`
	// Type of invocation (run, judge or bisect)
	Type RecordType `json:"type"`
	// Timestamp when the invocation started
	Timestamp time.Time `json:"timestamp"`
	// Command-line arguments (including command name)
	Args []string `json:"args"`
	// Working directory where the command was run (relative to repo root)
	WorkDir string `json:"workdir"`
	// Exit code of the invocation
	ExitCode int `json:"exit_code"`
	// Duration of the invocation
	Duration time.Duration `json:"duration"`
	// Git information
	Git *Git `json:"git,omitempty"`
	// Artifacts generated during this invocation
	Artifacts []Artifact `json:"artifacts,omitempty"`

	// Type-specific data (only one should be populated based on Type)
	Run    *RunInfo    `json:"run,omitempty"`
	Judge  *JudgeInfo  `json:"judge,omitempty"`
	Bisect *BisectInfo `json:"bisect,omitempty"`
}

// Git contains git repository information
type Git struct {
	// Git commit hash at time of invocation
	Commit string `json:"commit,omitempty"`
	// Git branch at time of invocation
	Branch string `json:"branch,omitempty"`
	// Repository name
	Repo string `json:"repo,omitempty"`
}

// RunInfo contains run-specific fields
type RunInfo struct {
	// Revision that was benchmarked (empty for working tree)
	Revision string `json:"revision,omitempty"`
	// Package identity of the benchmarked module
	Package string `json:"package,omitempty"`
	// Suite manifest path used
	Suite string `json:"suite,omitempty"`
}

// JudgeInfo contains judge-specific fields
type JudgeInfo struct {
	// Baseline and target as given on the command line (file or revision)
	Baseline string `json:"baseline,omitempty"`
	Target   string `json:"target,omitempty"`
	// Tolerances the judgement was computed with
	TimeTolerance   float64 `json:"time_tolerance"`
	MemoryTolerance float64 `json:"memory_tolerance"`
	// Aggregated root verdicts
	Time   Verdict `json:"time,omitempty"`
	Memory Verdict `json:"memory,omitempty"`
}

// BisectInfo contains bisect-specific fields
type BisectInfo struct {
	// Known-good and known-bad endpoints of the search range
	Good string `json:"good,omitempty"`
	Bad  string `json:"bad,omitempty"`
	// Earliest regressing revision found
	Culprit string `json:"culprit,omitempty"`
	// Number of revisions evaluated
	Steps int `json:"steps,omitempty"`
}

// ArtifactType identifies the type of artifact
type ArtifactType uint8

const (
	ArtifactTypeResults ArtifactType = iota
	ArtifactTypeJudgement
	ArtifactTypeTrace
	ArtifactTypeCPUProfile
	ArtifactTypeStdout
	ArtifactTypeStderr
)

// Artifact represents a file generated during an invocation
type Artifact struct {
	Type ArtifactType `json:"type"`
	Size uint64       `json:"size"`
	File string       `json:"file"` // relative to run dir
}
