package gitops

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Author identifies who commits generated reports.
type Author struct {
	Name  string
	Email string
}

func (a Author) String() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// Init initializes a new git repository at dir.
func Init(ctx context.Context, dir string) error {
	if _, err := git(ctx, dir, nil, "init", "--quiet"); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	return nil
}

// IsRepo reports whether dir is inside a git work tree.
func IsRepo(ctx context.Context, dir string) bool {
	out, err := git(ctx, dir, nil, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// CommitPaths stages paths (relative to dir) and commits them. committed is
// false when nothing changed, which is the normal outcome of re-running a
// calculation on unchanged input. Returns the short commit hash.
func CommitPaths(ctx context.Context, dir, message string, author Author, paths ...string) (hash string, committed bool, err error) {
	// Committer identity is the author so commits work without a git config.
	env := []string{
		"GIT_AUTHOR_NAME=" + author.Name,
		"GIT_AUTHOR_EMAIL=" + author.Email,
		"GIT_COMMITTER_NAME=" + author.Name,
		"GIT_COMMITTER_EMAIL=" + author.Email,
	}

	if _, err := git(ctx, dir, nil, append([]string{"add", "-A", "--"}, paths...)...); err != nil {
		return "", false, fmt.Errorf("git add: %w", err)
	}

	// Exit status 1 means staged changes exist.
	_, err = git(ctx, dir, nil, append([]string{"diff", "--cached", "--quiet", "--"}, paths...)...)
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return "", false, nil
	case !errors.As(err, &exitErr) || exitErr.ExitCode() != 1:
		return "", false, fmt.Errorf("git diff: %w", err)
	}

	if _, err := git(ctx, dir, env, append([]string{"commit", "--quiet", "-m", message, "--"}, paths...)...); err != nil {
		return "", false, fmt.Errorf("git commit: %w", err)
	}

	out, err := git(ctx, dir, nil, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", false, fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(out), true, nil
}

func git(ctx context.Context, dir string, env []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(cmd.Environ(), env...)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w", msg, err)
		}
		return "", err
	}
	return string(out), nil
}
