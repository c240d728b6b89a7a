package cli

// This file contains invocation recording functionality for saving
// run metadata and artifacts to the history directory.

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/benchjudge/benchjudge/history"
	"github.com/benchjudge/benchjudge/model"
	"github.com/benchjudge/benchjudge/vcs"
)

type invocation struct {
	record *model.Record
	runDir string
	start  time.Time
}

// beginInvocation prepares a history record for the current command.
// Recording is best effort: outside a git repository it is disabled
// with a debug log instead of failing the command.
func (a *App) beginInvocation(typ model.RecordType, pkgPath string) (*invocation, error) {
	// Generate random 16-byte ID
	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, fmt.Errorf("failed to generate invocation ID: %w", err)
	}

	inv := &invocation{
		start: time.Now(),
		record: &model.Record{
			ID:        hex.EncodeToString(idBytes),
			Type:      typ,
			Timestamp: time.Now(),
			Args:      os.Args,
		},
	}

	repoRoot, err := vcs.TopLevel(pkgPath)
	if err != nil {
		a.logger.Debug().Err(err).Msg("Not recording history outside a git repository")
		return inv, nil
	}

	// Capture working directory relative to the repo root
	if cwd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(repoRoot, cwd); err == nil {
			inv.record.WorkDir = rel
		}
	}

	// Capture git info (non-fatal if it fails)
	git := &model.Git{Repo: filepath.Base(repoRoot)}
	if commit, err := vcs.CurrentRevision(pkgPath); err == nil {
		git.Commit = commit
	}
	if branch, err := vcs.CurrentBranch(pkgPath); err == nil {
		git.Branch = branch
	}
	inv.record.Git = git

	// Create the history directory early so artifacts can be written
	// directly into it
	runDir, err := history.NewRunDir(repoRoot, inv.record)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare history directory: %w", err)
	}
	inv.runDir = runDir
	return inv, nil
}

// saveArtifact writes data into the run directory and registers it on
// the record. Artifact errors never fail the command.
func (a *App) saveArtifact(inv *invocation, name string, typ model.ArtifactType, data []byte) {
	if inv.runDir == "" || len(data) == 0 {
		return
	}
	path := filepath.Join(inv.runDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		a.logger.Warn().Err(err).Str("artifact", name).Msg("Failed to save artifact")
		return
	}
	inv.record.Artifacts = append(inv.record.Artifacts, model.Artifact{
		Type: typ,
		Size: uint64(len(data)),
		File: name,
	})
}

// registerArtifactFile registers a file already written inside the run
// directory (e.g. CPU profiles the child wrote directly).
func (a *App) registerArtifactFile(inv *invocation, relPath string, typ model.ArtifactType) {
	if inv.runDir == "" {
		return
	}
	info, err := os.Stat(filepath.Join(inv.runDir, relPath))
	if err != nil {
		a.logger.Warn().Err(err).Str("artifact", relPath).Msg("Failed to stat artifact")
		return
	}
	inv.record.Artifacts = append(inv.record.Artifacts, model.Artifact{
		Type: typ,
		Size: uint64(info.Size()),
		File: relPath,
	})
}

// finishInvocation closes the record and persists it (non-fatal if it
// fails).
func (a *App) finishInvocation(inv *invocation, finalErr error) {
	if inv == nil || inv.runDir == "" {
		return
	}
	inv.record.Duration = time.Since(inv.start)
	if finalErr != nil {
		inv.record.ExitCode = 1
		if coder, ok := finalErr.(interface{ ExitCode() int }); ok {
			inv.record.ExitCode = coder.ExitCode()
		}
	}
	if err := history.Save(inv.record, inv.runDir); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to record history")
		return
	}
	a.logger.Debug().Str("dir", inv.runDir).Str("id", inv.record.ID).Msg("Recorded invocation")
}
