// Package gitrepo answers questions about the repository's git metadata.
package gitrepo

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
)

// Repo gives access to a repository's control-metadata paths.
type Repo struct {
	root string
}

// New creates a Repo for the given repository root.
func New(root string) *Repo {
	return &Repo{root: root}
}

// Root returns the repository root.
func (r *Repo) Root() string {
	return r.root
}

// HooksDir returns the directory git reads hooks from. It asks git so that
// worktrees and core.hooksPath are honoured, and falls back to .git/hooks
// when git is unavailable.
func (r *Repo) HooksDir(ctx context.Context) string {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-path", "hooks")
	cmd.Dir = r.root
	out, err := cmd.Output()
	if err != nil {
		return filepath.Join(r.root, ".git", "hooks")
	}

	dir := strings.TrimSpace(string(out))
	if dir == "" {
		return filepath.Join(r.root, ".git", "hooks")
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(r.root, dir)
	}
	return dir
}

// HookPath returns the path of the named hook script, e.g. "pre-commit".
func (r *Repo) HookPath(ctx context.Context, name string) string {
	return filepath.Join(r.HooksDir(ctx), name)
}
