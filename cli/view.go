package cli

// This file contains the view command for displaying recorded
// invocations from history.

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/benchjudge/benchjudge/history"
	"github.com/benchjudge/benchjudge/model"
	"github.com/benchjudge/benchjudge/report"
)

func removeFirstDashDash(in []string) []string {
	if len(in) > 0 && in[0] == "--" {
		return in[1:]
	}
	return in
}

func parseViewArgs(in []string) (idArg string, pprofArgs []string) {
	if len(in) == 0 {
		return "0", nil
	}

	// If first arg is "--", use default "0" and rest are pprof args
	if in[0] == "--" {
		return "0", in[1:]
	}

	// Check if first arg looks like a pprof flag instead of an ID
	// A negative index is: "-" followed by only digits (e.g., "-1", "-2")
	// A pprof flag is: "-" followed by non-digit or equals (e.g., "-http=:8080", "-top")
	if len(in[0]) > 1 && in[0][0] == '-' {
		// Check if it's a valid negative integer
		if _, err := strconv.ParseInt(in[0], 10, 64); err != nil {
			// Not a valid negative integer, so it's a pprof flag
			return "0", in
		}
	}

	// First arg is the ID/index, rest are pprof args (with optional "--" removed)
	return in[0], removeFirstDashDash(in[1:])
}

func (a *App) view(ctx *cli.Context) error {
	// Parse arguments to extract ID/index and pprof args
	arg, pprofArgs := parseViewArgs(ctx.Args().Slice())

	// Get benchjudge root directory
	root, err := history.Root(".")
	if err != nil {
		return err
	}

	// Load all history entries
	entries, err := history.LoadEntries(a.logger, root)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(entries) == 0 {
		return fmt.Errorf("no history entries found")
	}

	// Sort by timestamp (newest first)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Record.Timestamp.After(entries[j].Record.Timestamp)
	})

	// Parse argument to find the target entry
	var targetEntry *history.Entry
	if parsed, err := strconv.ParseInt(arg, 10, 64); err == nil {
		// It's a number
		if parsed > 0 {
			// Positive integers are not allowed
			return fmt.Errorf("invalid index: %s (use 0 for last, -1 for second-to-last, -2 for third-to-last, etc.)", arg)
		}
		// 0 or negative integer: count from the end
		index := int(-parsed)
		if index >= len(entries) {
			return fmt.Errorf("index %s out of range (only %d history entries)", arg, len(entries))
		}
		targetEntry = &entries[index]
	} else {
		// Treat as hex ID prefix
		hexID := strings.ToLower(arg)
		found := false
		for i := range entries {
			if strings.HasPrefix(strings.ToLower(entries[i].Record.ID), hexID) {
				targetEntry = &entries[i]
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("no history entry found matching ID: %s", arg)
		}
	}

	// Display the entry
	return a.displayHistoryEntry(targetEntry, pprofArgs)
}

func (a *App) displayHistoryEntry(entry *history.Entry, pprofArgs []string) error {
	rec := entry.Record

	// Print header
	fmt.Printf("=== %s: %s ===\n", rec.Type, rec.ID[:8])
	fmt.Printf("Time: %s\n", rec.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("Duration: %s\n", rec.Duration)
	fmt.Printf("Exit Code: %d\n", rec.ExitCode)
	if rec.WorkDir != "" {
		fmt.Printf("Working Dir: %s\n", rec.WorkDir)
	}
	if rec.Git != nil && rec.Git.Commit != "" {
		fmt.Printf("Git Commit: %s", rec.Git.Commit[:8])
		if rec.Git.Branch != "" {
			fmt.Printf(" (%s)", rec.Git.Branch)
		}
		fmt.Println()
	}
	if rec.Judge != nil {
		fmt.Printf("Judged: %s vs %s (time tolerance %.2f, memory tolerance %.2f)\n",
			rec.Judge.Baseline, rec.Judge.Target,
			rec.Judge.TimeTolerance, rec.Judge.MemoryTolerance)
	}
	if rec.Bisect != nil {
		fmt.Printf("Bisected: %s..%s culprit=%s\n", rec.Bisect.Good, rec.Bisect.Bad, rec.Bisect.Culprit)
	}
	fmt.Println()

	// Prioritize artifacts for display
	// Highest priority: judgements and results renderings
	// Lowest priority: captured output
	var judgementArtifact *model.Artifact
	var resultsArtifact *model.Artifact
	var profileArtifact *model.Artifact
	var stdoutArtifact *model.Artifact
	var stderrArtifact *model.Artifact

	for i := range rec.Artifacts {
		artifact := &rec.Artifacts[i]
		switch artifact.Type {
		case model.ArtifactTypeJudgement:
			judgementArtifact = artifact
		case model.ArtifactTypeResults:
			resultsArtifact = artifact
		case model.ArtifactTypeCPUProfile:
			profileArtifact = artifact
		case model.ArtifactTypeStdout:
			stdoutArtifact = artifact
		case model.ArtifactTypeStderr:
			stderrArtifact = artifact
		}
	}

	// pprof args force profile display
	if len(pprofArgs) > 0 && profileArtifact != nil {
		return a.displayProfile(entry.FullPath, profileArtifact, pprofArgs)
	}

	if judgementArtifact != nil {
		return a.displayJudgement(entry.FullPath, judgementArtifact)
	}

	if resultsArtifact != nil {
		return a.displayResults(entry.FullPath, resultsArtifact)
	}

	if profileArtifact != nil {
		return a.displayProfile(entry.FullPath, profileArtifact, pprofArgs)
	}

	if stdoutArtifact != nil {
		return a.displayOutput(entry.FullPath, stdoutArtifact, "stdout")
	}

	if stderrArtifact != nil {
		return a.displayOutput(entry.FullPath, stderrArtifact, "stderr")
	}

	// No displayable artifacts found
	fmt.Println("No displayable artifacts found")
	fmt.Printf("History directory: %s\n", entry.FullPath)
	return nil
}

func (a *App) displayJudgement(runDir string, artifact *model.Artifact) error {
	judgement, err := model.ReadJudgementFile(filepath.Join(runDir, artifact.File))
	if err != nil {
		return err
	}
	report.Judgement(os.Stdout, judgement)
	return nil
}

func (a *App) displayResults(runDir string, artifact *model.Artifact) error {
	results, err := model.ReadResultsFile(filepath.Join(runDir, artifact.File))
	if err != nil {
		return err
	}
	report.Results(os.Stdout, results)
	return nil
}

func (a *App) displayProfile(runDir string, artifact *model.Artifact, pprofArgs []string) error {
	profilePath := filepath.Join(runDir, artifact.File)
	fmt.Printf("Profile: %s (%.1f KB)\n", profilePath, float64(artifact.Size)/1024)

	// Build pprof command with any additional args
	args := []string{"tool", "pprof"}
	args = append(args, pprofArgs...)
	args = append(args, profilePath)

	cmd := exec.Command("go", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Dir = runDir

	return cmd.Run()
}

func (a *App) displayOutput(runDir string, artifact *model.Artifact, label string) error {
	path := filepath.Join(runDir, artifact.File)
	fmt.Printf("Captured %s: %s\n", label, path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", label, err)
	}
	fmt.Println(string(data))
	return nil
}
