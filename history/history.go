package history

// This file contains shared history utilities for saving, loading and
// parsing benchjudge invocation records.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/benchjudge/benchjudge/model"
	"github.com/benchjudge/benchjudge/vcs"
)

// Entry is a loaded invocation record together with its directory.
type Entry struct {
	Record   model.Record
	FullPath string
}

// Root returns the .benchjudge directory at the repository root
// containing dir, failing when no records exist yet.
func Root(dir string) (string, error) {
	repoRoot, err := vcs.TopLevel(dir)
	if err != nil {
		return "", err
	}
	root := filepath.Join(repoRoot, ".benchjudge")
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return "", fmt.Errorf("no runs recorded in %s", root)
	}
	return root, nil
}

// NewRunDir creates the directory a record and its artifacts are saved
// into: .benchjudge/history/<timestamp>-<shortcommit>-<shortid>.
func NewRunDir(repoRoot string, record *model.Record) (string, error) {
	timestamp := record.Timestamp.Format("20060102-150405")
	commit := "nocommit"
	if record.Git != nil && record.Git.Commit != "" {
		commit = record.Git.Commit
	}
	name := fmt.Sprintf("%s-%s-%s", timestamp, shorten(commit), shorten(record.ID))
	runDir := filepath.Join(repoRoot, ".benchjudge", "history", name)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}
	return runDir, nil
}

// Save writes the record metadata into its run directory.
func Save(record *model.Record, runDir string) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "record.json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// LoadEntries loads all records under the .benchjudge directory.
// Unparseable entries are skipped with a warning so one corrupt record
// does not hide the rest.
func LoadEntries(logger zerolog.Logger, root string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			recordPath := filepath.Join(path, "record.json")
			if _, err := os.Stat(recordPath); err == nil {
				record, err := parseRecordJSON(recordPath)
				if err != nil {
					logger.Warn().Err(err).Str("path", recordPath).Msg("Failed to parse record.json")
					return nil
				}

				entries = append(entries, Entry{
					Record:   record,
					FullPath: path,
				})
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk .benchjudge directory: %w", err)
	}

	return entries, nil
}

// parseRecordJSON parses a record.json file.
func parseRecordJSON(recordPath string) (model.Record, error) {
	data, err := os.ReadFile(recordPath)
	if err != nil {
		return model.Record{}, err
	}

	var record model.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return model.Record{}, err
	}

	return record, nil
}

func shorten(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
