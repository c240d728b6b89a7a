package runner

// This file contains the suite manifest: the YAML file declaring which
// benchmarks make up the suite and how they are measured.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default measurement parameters applied where the manifest is silent.
const (
	DefaultSamples   = 5
	DefaultBenchtime = "1s"
	DefaultPattern   = "."
)

// Target is one named entry of the suite: a benchmark pattern within a
// package. Sub-benchmarks discovered under the pattern become nested
// groups in the result tree.
type Target struct {
	// Name of the tree group the target's benchmarks are filed under
	Name string `yaml:"name"`
	// Package path relative to the repository root (default ".")
	Package string `yaml:"package"`
	// Benchmark regex passed to -bench (default ".")
	Pattern string `yaml:"pattern"`
	// Per-target overrides of the top-level defaults
	Benchtime string `yaml:"benchtime,omitempty"`
	Samples   int    `yaml:"samples,omitempty"`
}

// Manifest is the parsed suite file.
type Manifest struct {
	// Samples collected per benchmark (default 5)
	Samples int `yaml:"samples,omitempty"`
	// Calibration benchtime (default "1s")
	Benchtime string `yaml:"benchtime,omitempty"`
	// Timeout passed through to go test (optional)
	Timeout string `yaml:"timeout,omitempty"`
	// The benchmarks making up the suite
	Suite []Target `yaml:"suite"`
}

// LoadManifest reads and validates a suite manifest, applying defaults.
// An empty suite list is not an error here; the runner reports it as a
// missing suite through the report envelope.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite manifest: %w", err)
	}
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse suite manifest %s: %w", path, err)
	}

	if manifest.Samples <= 0 {
		manifest.Samples = DefaultSamples
	}
	if manifest.Benchtime == "" {
		manifest.Benchtime = DefaultBenchtime
	}
	for i := range manifest.Suite {
		target := &manifest.Suite[i]
		if target.Name == "" {
			return nil, fmt.Errorf("suite entry %d has no name", i)
		}
		if target.Package == "" {
			target.Package = "."
		}
		if target.Pattern == "" {
			target.Pattern = DefaultPattern
		}
		if target.Benchtime == "" {
			target.Benchtime = manifest.Benchtime
		}
		if target.Samples <= 0 {
			target.Samples = manifest.Samples
		}
	}
	return &manifest, nil
}
