package gitops

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func TestInit(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	r := Open(dir, "Test Author", "test@example.com")

	assert.False(t, IsRepo(dir), "empty dir should not be a repo")
	require.NoError(t, r.Init(context.Background()))
	assert.True(t, IsRepo(dir), "initialized dir should be a repo")
	require.NoError(t, r.Init(context.Background()), "second init is a no-op")
}

func TestCommitAll(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := t.TempDir()
	r := Open(dir, "Test Author", "test@example.com")
	require.NoError(t, r.Init(ctx))

	hash, err := r.CommitAll(ctx, "nothing yet")
	require.NoError(t, err)
	assert.Empty(t, hash, "clean tree makes no commit")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "transactions.csv"), []byte("id\n"), 0o644))
	changed, err := r.HasChanges(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	hash, err = r.CommitAll(ctx, "import: statement.csv")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	changed, err = r.HasChanges(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	log := exec.Command("git", "log", "--format=%s|%an <%ae>", "-1")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "import: statement.csv|Test Author <test@example.com>")
}
