package harness

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/benchjudge/benchjudge/model"
	"github.com/benchjudge/benchjudge/runner"
	"github.com/benchjudge/benchjudge/vcs"
)

// stubChild writes a shell script standing in for the runner child: it
// parses --out from its arguments, copies the canned report there (when
// given one) and exits with the requested code.
func stubChild(t *testing.T, reportPath string, exitCode int) []string {
	t.Helper()
	script := `#!/bin/sh
out=""
while [ "$#" -gt 0 ]; do
	if [ "$1" = "--out" ]; then out="$2"; shift; fi
	shift
done
`
	if reportPath != "" {
		script += fmt.Sprintf("cp %q \"$out\"\n", reportPath)
	}
	script += fmt.Sprintf("exit %d\n", exitCode)

	path := filepath.Join(t.TempDir(), "child.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return []string{"/bin/sh", path}
}

func cannedReport(t *testing.T) string {
	t.Helper()
	tree := model.NewTree()
	tree.InsertPath("suite/parse", model.Trial{
		Samples:  5,
		Evals:    100,
		MinNs:    95e6,
		MedianNs: 100e6,
		MeanNs:   101e6,
		MaxNs:    110e6,
	})
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, runner.WriteReportFile(path, &runner.Report{
		Toolchain: "go version go1.24.6 linux/amd64",
		Tree:      tree,
	}))
	return path
}

// pkgDir lays out a minimal benchmarked package: a go.mod and a suite
// manifest naming one target.
func pkgDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/bench\n\ngo 1.24\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "benchmarks.yaml"), []byte("suite:\n  - name: suite\n"), 0644))
	return dir
}

func gitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test",
		"GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test",
		"GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func commitAll(t *testing.T, dir string) string {
	t.Helper()
	gitCmd(t, dir, "add", "-A")
	gitCmd(t, dir, "commit", "--quiet", "-m", "commit")
	sha, err := vcs.CurrentRevision(dir)
	require.NoError(t, err)
	return sha
}

func newExecutor() *Executor {
	return New(zerolog.Nop(), WithSinkFactory(func(string) io.Writer { return io.Discard }))
}

func baseRequest(t *testing.T, dir string, executable []string) Request {
	t.Helper()
	return Request{
		PkgPath:    dir,
		Config:     model.Config{Executable: executable},
		SuitePath:  filepath.Join(dir, "benchmarks.yaml"),
		TuningPath: filepath.Join(dir, ".benchjudge", "tuning.json"),
	}
}

func TestExecute_NonGitRepo(t *testing.T) {
	dir := pkgDir(t)
	req := baseRequest(t, dir, stubChild(t, cannedReport(t), 0))

	results, err := newExecutor().Execute(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "example.com/bench", results.Package)
	require.Equal(t, model.CommitNonGitRepo, results.Commit)
	require.Equal(t, "go version go1.24.6 linux/amd64", results.Toolchain)
	require.NotNil(t, results.Tree)
	require.Contains(t, results.Tree.Groups, "suite")
}

func TestExecute_CleanRepoLabelsCommit(t *testing.T) {
	dir := pkgDir(t)
	gitCmd(t, dir, "init", "--quiet", "--initial-branch=main")
	sha := commitAll(t, dir)

	req := baseRequest(t, dir, stubChild(t, cannedReport(t), 0))
	results, err := newExecutor().Execute(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, sha, results.Commit)
}

func TestExecute_DirtyRepoLabelsDirty(t *testing.T) {
	dir := pkgDir(t)
	gitCmd(t, dir, "init", "--quiet", "--initial-branch=main")
	commitAll(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("x"), 0644))

	// without a revision a dirty tree is benchmarked as-is
	req := baseRequest(t, dir, stubChild(t, cannedReport(t), 0))
	results, err := newExecutor().Execute(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, model.CommitDirty, results.Commit)
}

func TestExecute_RevisionCheckoutAndRestore(t *testing.T) {
	dir := pkgDir(t)
	gitCmd(t, dir, "init", "--quiet", "--initial-branch=main")
	first := commitAll(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("second\n"), 0644))
	second := commitAll(t, dir)

	req := baseRequest(t, dir, stubChild(t, cannedReport(t), 0))
	req.Config.Revision = first

	results, err := newExecutor().Execute(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first, results.Commit)
	require.Equal(t, first, results.Config.Revision)

	// the original HEAD is restored after the run
	head, err := vcs.CurrentRevision(dir)
	require.NoError(t, err)
	require.Equal(t, second, head)
}

func TestExecute_RevisionRestoredOnChildFailure(t *testing.T) {
	dir := pkgDir(t)
	gitCmd(t, dir, "init", "--quiet", "--initial-branch=main")
	first := commitAll(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("second\n"), 0644))
	second := commitAll(t, dir)

	req := baseRequest(t, dir, stubChild(t, "", 1))
	req.Config.Revision = first

	_, err := newExecutor().Execute(context.Background(), req)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, 1, execErr.ExitCode)

	head, headErr := vcs.CurrentRevision(dir)
	require.NoError(t, headErr)
	require.Equal(t, second, head)
}

func TestExecute_DirtyGuard(t *testing.T) {
	dir := pkgDir(t)
	gitCmd(t, dir, "init", "--quiet", "--initial-branch=main")
	sha := commitAll(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("x"), 0644))

	req := baseRequest(t, dir, stubChild(t, cannedReport(t), 0))
	req.Config.Revision = sha

	_, err := newExecutor().Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrDirtyRepository)
}

func TestExecute_RevisionOutsideRepository(t *testing.T) {
	dir := pkgDir(t)
	req := baseRequest(t, dir, stubChild(t, cannedReport(t), 0))
	req.Config.Revision = "deadbeef"

	_, err := newExecutor().Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrNotARepository)
}

func TestExecute_SuiteManifestMissing(t *testing.T) {
	dir := pkgDir(t)
	req := baseRequest(t, dir, stubChild(t, cannedReport(t), 0))
	req.SuitePath = filepath.Join(dir, "nope.yaml")

	_, err := newExecutor().Execute(context.Background(), req)
	require.ErrorContains(t, err, "suite manifest not found")
}

func TestExecute_MissingSuiteReport(t *testing.T) {
	dir := pkgDir(t)

	// a child that classifies its own failure exits nonzero but leaves
	// a report naming the kind
	reportPath := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, runner.WriteReportFile(reportPath, &runner.Report{
		Error: &runner.ReportError{Kind: runner.ErrorKindMissingSuite, Message: "suite is empty"},
	}))
	req := baseRequest(t, dir, stubChild(t, reportPath, 1))

	_, err := newExecutor().Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrMissingSuite)
}

func TestExecute_MalformedReport(t *testing.T) {
	dir := pkgDir(t)
	garbage := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(garbage, []byte("not json"), 0644))

	req := baseRequest(t, dir, stubChild(t, garbage, 0))

	_, err := newExecutor().Execute(context.Background(), req)
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestExecute_ReportWithoutTree(t *testing.T) {
	dir := pkgDir(t)
	reportPath := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, runner.WriteReportFile(reportPath, &runner.Report{Toolchain: "go version go1.24.6"}))

	req := baseRequest(t, dir, stubChild(t, reportPath, 0))

	_, err := newExecutor().Execute(context.Background(), req)
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.ErrorContains(t, err, "no result tree")
}
