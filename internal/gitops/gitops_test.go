package gitops

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAuthor = Author{Name: "cryptotax", Email: "reports@cryptotax.local"}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func gitLog(t *testing.T, dir, format string) string {
	t.Helper()
	cmd := exec.Command("git", "log", "--format="+format, "-1")
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	return strings.TrimSpace(string(out))
}

func TestInit(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	require.NoError(t, Init(context.Background(), dir))

	_, err := os.Stat(filepath.Join(dir, ".git"))
	require.NoError(t, err, ".git directory should exist")
}

func TestIsRepo(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := t.TempDir()
	assert.False(t, IsRepo(ctx, dir), "empty dir should not be a repo")

	require.NoError(t, Init(ctx, dir))
	assert.True(t, IsRepo(ctx, dir), "initialized dir should be a repo")

	sub := filepath.Join(dir, "reports")
	require.NoError(t, os.Mkdir(sub, 0o755))
	assert.True(t, IsRepo(ctx, sub), "subdirectory is inside the work tree")
}

func TestCommitPaths(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, Init(ctx, dir))

	require.NoError(t, os.Mkdir(filepath.Join(dir, "reports"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reports", "BTC.csv"), []byte("line_id\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("not committed"), 0o644))

	hash, committed, err := CommitPaths(ctx, dir, "compute: run 01A", testAuthor, "reports")
	require.NoError(t, err)
	assert.True(t, committed)
	assert.NotEmpty(t, hash)

	assert.Equal(t, "compute: run 01A", gitLog(t, dir, "%s"))
	assert.Equal(t, testAuthor.String(), gitLog(t, dir, "%an <%ae>"))

	// Paths outside the list stay untracked.
	status := exec.Command("git", "status", "--porcelain", "scratch.txt")
	status.Dir = dir
	out, err := status.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "?? scratch.txt")
}

func TestCommitPaths_NothingChanged(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, Init(ctx, dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BTC.csv"), []byte("x\n"), 0o644))

	_, committed, err := CommitPaths(ctx, dir, "first", testAuthor, "BTC.csv")
	require.NoError(t, err)
	require.True(t, committed)

	hash, committed, err := CommitPaths(ctx, dir, "second", testAuthor, "BTC.csv")
	require.NoError(t, err)
	assert.False(t, committed)
	assert.Empty(t, hash)
	assert.Equal(t, "first", gitLog(t, dir, "%s"))
}

func TestCommitPaths_NotARepo(t *testing.T) {
	requireGit(t)
	_, _, err := CommitPaths(context.Background(), t.TempDir(), "msg", testAuthor, ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git add")
}
