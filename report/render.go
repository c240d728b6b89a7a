// Package report renders result trees and judgements for the terminal.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/benchjudge/benchjudge/model"
)

const indentStep = "  "

// Results writes an indented rendering of a completed run.
func Results(w io.Writer, results *model.Results) {
	fmt.Fprintf(w, "package:   %s\n", results.Package)
	fmt.Fprintf(w, "commit:    %s\n", results.Commit)
	fmt.Fprintf(w, "toolchain: %s\n", results.Toolchain)
	fmt.Fprintf(w, "measured:  %s\n\n", results.Timestamp.Format("2006-01-02 15:04:05"))
	renderTree(w, results.Tree, "")
}

func renderTree(w io.Writer, tree *model.Tree, indent string) {
	if tree == nil {
		return
	}
	for _, name := range tree.TrialNames() {
		trial := tree.Trials[name]
		fmt.Fprintf(w, "%s%s  %s (min %s, max %s)  %d B/op  %d allocs/op  [%d samples x %d evals]\n",
			indent, name,
			duration(trial.MedianNs), duration(trial.MinNs), duration(trial.MaxNs),
			trial.AllocatedBytes, trial.Allocs,
			trial.Samples, trial.Evals)
	}
	for _, name := range tree.GroupNames() {
		fmt.Fprintf(w, "%s%s/\n", indent, styleGroup.Render(name))
		renderTree(w, tree.Groups[name], indent+indentStep)
	}
}

// Judgement writes an indented rendering of a comparison, one line per
// trial with colored verdicts, plus a summary count.
func Judgement(w io.Writer, judgement *model.Judgement) {
	renderJudgement(w, judgement, "")

	regressions, improvements, invariants := judgement.Counts()
	fmt.Fprintf(w, "\n%d regressions, %d improvements, %d invariant (overall time: %s, memory: %s)\n",
		regressions, improvements, invariants,
		verdict(judgement.Time), verdict(judgement.Memory))
}

func renderJudgement(w io.Writer, judgement *model.Judgement, indent string) {
	for _, name := range sortedTrialNames(judgement) {
		tj := judgement.Trials[name]
		fmt.Fprintf(w, "%s%s  time %s (%s)  memory %s (%s)\n",
			indent, name,
			ratio(tj.TimeRatio), verdict(tj.Time),
			ratio(tj.MemoryRatio), verdict(tj.Memory))
	}
	for _, name := range judgement.Added {
		fmt.Fprintf(w, "%s%s  %s\n", indent, name, styleMarker.Render("added"))
	}
	for _, name := range judgement.Removed {
		fmt.Fprintf(w, "%s%s  %s\n", indent, name, styleMarker.Render("removed"))
	}
	for _, name := range sortedGroupNames(judgement) {
		fmt.Fprintf(w, "%s%s/\n", indent, styleGroup.Render(name))
		renderJudgement(w, judgement.Groups[name], indent+indentStep)
	}
}

func verdict(v model.Verdict) string {
	switch v {
	case model.VerdictRegression:
		return styleRegression.Render(string(v))
	case model.VerdictImprovement:
		return styleImprovement.Render(string(v))
	default:
		return styleInvariant.Render(string(v))
	}
}

func ratio(r float64) string {
	if r == math.MaxFloat64 {
		return "inf"
	}
	return fmt.Sprintf("%.3fx", r)
}

func duration(ns float64) string {
	return time.Duration(int64(ns)).String()
}

func sortedTrialNames(j *model.Judgement) []string {
	names := make([]string, 0, len(j.Trials))
	for name := range j.Trials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedGroupNames(j *model.Judgement) []string {
	names := make([]string, 0, len(j.Groups))
	for name := range j.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
