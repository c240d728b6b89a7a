package history

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/benchjudge/benchjudge/model"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cmd := exec.Command("git", "init", "--quiet", dir)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git init: %s", out)
	return dir
}

func sampleRecord(id string) *model.Record {
	return &model.Record{
		ID:        id,
		Type:      model.RecordTypeRun,
		Timestamp: time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC),
		Args:      []string{"benchjudge", "run"},
		Git:       &model.Git{Commit: "0123456789abcdef0123456789abcdef01234567", Branch: "main"},
		Run:       &model.RunInfo{Suite: "benchmarks.yaml"},
	}
}

func TestNewRunDirAndSave(t *testing.T) {
	repoRoot := t.TempDir()
	record := sampleRecord("a1b2c3d4e5f60718a1b2c3d4e5f60718")

	runDir, err := NewRunDir(repoRoot, record)
	require.NoError(t, err)
	require.Equal(t, "20260824-103000-01234567-a1b2c3d4", filepath.Base(runDir))
	require.NoError(t, Save(record, runDir))

	entries, err := LoadEntries(zerolog.Nop(), filepath.Join(repoRoot, ".benchjudge"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, record.ID, entries[0].Record.ID)
	require.Equal(t, model.RecordTypeRun, entries[0].Record.Type)
	require.Equal(t, "benchmarks.yaml", entries[0].Record.Run.Suite)
	require.Equal(t, runDir, entries[0].FullPath)
}

func TestNewRunDir_NoCommit(t *testing.T) {
	repoRoot := t.TempDir()
	record := sampleRecord("a1b2c3d4e5f60718a1b2c3d4e5f60718")
	record.Git = nil

	runDir, err := NewRunDir(repoRoot, record)
	require.NoError(t, err)
	require.Equal(t, "20260824-103000-nocommit-a1b2c3d4", filepath.Base(runDir))
}

func TestLoadEntries_SkipsCorruptRecords(t *testing.T) {
	repoRoot := t.TempDir()

	good := sampleRecord("a1b2c3d4e5f60718a1b2c3d4e5f60718")
	runDir, err := NewRunDir(repoRoot, good)
	require.NoError(t, err)
	require.NoError(t, Save(good, runDir))

	bad := sampleRecord("ffffffffffffffffffffffffffffffff")
	badDir, err := NewRunDir(repoRoot, bad)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(badDir, "record.json"), []byte("{truncated"), 0644))

	entries, err := LoadEntries(zerolog.Nop(), filepath.Join(repoRoot, ".benchjudge"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, good.ID, entries[0].Record.ID)
}

func TestRoot(t *testing.T) {
	dir := initRepo(t)

	// no records yet
	_, err := Root(dir)
	require.ErrorContains(t, err, "no runs recorded")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".benchjudge"), 0755))
	root, err := Root(dir)
	require.NoError(t, err)
	require.Equal(t, ".benchjudge", filepath.Base(root))

	// resolves from subdirectories too
	sub := filepath.Join(dir, "internal")
	require.NoError(t, os.MkdirAll(sub, 0755))
	subRoot, err := Root(sub)
	require.NoError(t, err)
	require.Equal(t, filepath.Base(root), filepath.Base(subRoot))
}

func TestRoot_OutsideRepository(t *testing.T) {
	_, err := Root(t.TempDir())
	require.Error(t, err)
}
