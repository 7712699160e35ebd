// Package gitops versions a file-store data directory with git, one commit
// per import.
package gitops

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Repo is a git working tree with a fixed commit author.
type Repo struct {
	Dir         string
	AuthorName  string
	AuthorEmail string
}

// Open returns the repo at dir. It does not touch the filesystem.
func Open(dir, authorName, authorEmail string) *Repo {
	return &Repo{Dir: dir, AuthorName: authorName, AuthorEmail: authorEmail}
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Init runs git init unless the directory already is a repository.
func (r *Repo) Init(ctx context.Context) error {
	if IsRepo(r.Dir) {
		return nil
	}
	if _, err := r.git(ctx, "init", "--quiet"); err != nil {
		return err
	}
	return nil
}

// HasChanges reports whether the working tree has anything to commit.
func (r *Repo) HasChanges(ctx context.Context) (bool, error) {
	out, err := r.git(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return len(bytes.TrimSpace(out)) > 0, nil
}

// CommitAll stages everything and commits it. It returns the short hash,
// or "" when there was nothing to commit.
func (r *Repo) CommitAll(ctx context.Context, message string) (string, error) {
	changed, err := r.HasChanges(ctx)
	if err != nil {
		return "", err
	}
	if !changed {
		return "", nil
	}
	if _, err := r.git(ctx, "add", "-A"); err != nil {
		return "", err
	}
	author := fmt.Sprintf("%s <%s>", r.AuthorName, r.AuthorEmail)
	if _, err := r.git(ctx, "commit", "--quiet", "-m", message, "--author", author); err != nil {
		return "", err
	}
	out, err := r.git(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (r *Repo) git(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	// Commits must work on machines without a global git identity.
	cmd.Env = append(os.Environ(),
		"GIT_COMMITTER_NAME="+r.AuthorName,
		"GIT_COMMITTER_EMAIL="+r.AuthorEmail,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(stderr.String()), err)
	}
	return out, nil
}
