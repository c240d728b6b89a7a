package cli

// This file contains the list command for displaying previous
// invocations.

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/benchjudge/benchjudge/history"
	"github.com/benchjudge/benchjudge/model"
)

func (a *App) list(ctx *cli.Context) error {
	filterPath := ctx.String("path")
	limit := ctx.Int("limit")

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

	// Apply path filter if specified
	var filtered []history.Entry
	for _, entry := range entries {
		if filterPath == "" || strings.Contains(entry.Record.WorkDir, filterPath) {
			filtered = append(filtered, entry)
		}
	}

	if len(filtered) == 0 {
		if filterPath != "" {
			fmt.Printf("No history entries found matching path: %s\n", filterPath)
		} else {
			fmt.Println("No history entries found")
		}
		return nil
	}

	// Sort by timestamp (newest first)
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Record.Timestamp.After(filtered[j].Record.Timestamp)
	})

	// Apply limit
	display := filtered
	if limit > 0 && limit < len(display) {
		display = display[:limit]
	}

	fmt.Printf("\n=== History (%d total) ===\n\n", len(filtered))

	for _, entry := range display {
		rec := entry.Record
		timestamp := rec.Timestamp.Format("2006-01-02 15:04:05")

		// Format duration
		duration := rec.Duration.Round(time.Millisecond)

		// Determine status indicator
		status := "✓"
		if rec.ExitCode != 0 {
			status = "✗"
		}

		// Format args (skip the program name)
		args := ""
		if len(rec.Args) > 1 {
			args = strings.Join(rec.Args[1:], " ")
		}

		// Show short ID (first 8 chars)
		shortID := rec.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}

		fmt.Printf("%s  %s  %-6s  [%s]  exit=%d  id=%s\n", status, timestamp, rec.Type, duration, rec.ExitCode, shortID)
		if args != "" {
			fmt.Printf("   Args: %s\n", args)
		}
		if rec.WorkDir != "" {
			fmt.Printf("   Path: %s\n", rec.WorkDir)
		}
		if rec.Git != nil && rec.Git.Commit != "" {
			shortCommit := rec.Git.Commit
			if len(shortCommit) > 8 {
				shortCommit = shortCommit[:8]
			}
			fmt.Printf("   Commit: %s", shortCommit)
			if rec.Git.Branch != "" {
				fmt.Printf(" (%s)", rec.Git.Branch)
			}
			fmt.Println()
		}
		if rec.Run != nil && rec.Run.Revision != "" {
			fmt.Printf("   Revision: %s\n", rec.Run.Revision)
		}
		if rec.Judge != nil {
			fmt.Printf("   Judged: %s vs %s (time: %s, memory: %s)\n",
				rec.Judge.Baseline, rec.Judge.Target, rec.Judge.Time, rec.Judge.Memory)
		}
		if rec.Bisect != nil {
			fmt.Printf("   Bisected: %s..%s culprit=%s (%d evaluations)\n",
				rec.Bisect.Good, rec.Bisect.Bad, rec.Bisect.Culprit, rec.Bisect.Steps)
		}
		if len(rec.Artifacts) > 0 {
			for _, artifact := range rec.Artifacts {
				var typeName string
				switch artifact.Type {
				case model.ArtifactTypeResults:
					typeName = "results"
				case model.ArtifactTypeJudgement:
					typeName = "judgement"
				case model.ArtifactTypeTrace:
					typeName = "trace"
				case model.ArtifactTypeCPUProfile:
					typeName = "profile"
				case model.ArtifactTypeStdout:
					typeName = "stdout"
				case model.ArtifactTypeStderr:
					typeName = "stderr"
				}
				if typeName != "" {
					fmt.Printf("   %s: %s (%.1f KB)\n", typeName, artifact.File, float64(artifact.Size)/1024)
				}
			}
		}
		fmt.Printf("   %s\n", entry.FullPath)
		fmt.Println()
	}

	fmt.Println("\nView a recorded invocation: benchjudge view <ID>")

	return nil
}
