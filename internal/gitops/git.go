// Package gitops shells out to git and gh with argument vectors, bounded
// timeouts, and typed results. Failures carry the captured stderr so the
// workflow chain can surface the diagnostic verbatim.
package gitops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	// metaTimeout bounds metadata operations (branch, status, commit).
	metaTimeout = 30 * time.Second
	// longTimeout bounds network-heavy operations (clone, pull, push).
	longTimeout = 5 * time.Minute
)

// RunArtifactsDir is excluded from commits: it holds agent logs and run
// state that never belong in the target repository's history.
const RunArtifactsDir = "agents/"

// Result is the outcome of one subprocess invocation.
type Result struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
}

// Diagnostic returns the most useful error text from a failed invocation.
func (r Result) Diagnostic() string {
	if strings.TrimSpace(r.Stderr) != "" {
		return strings.TrimSpace(r.Stderr)
	}
	return strings.TrimSpace(r.Stdout)
}

// Git runs git and gh against a single working directory.
type Git struct {
	dir string
}

func New(dir string) *Git {
	return &Git{dir: dir}
}

func (g *Git) run(ctx context.Context, timeout time.Duration, name string, args ...string) Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	if g.dir != "" {
		cmd.Dir = g.dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if ctx.Err() == context.DeadlineExceeded {
		result.ExitCode = -1
		result.Stderr = fmt.Sprintf("%s timed out after %s", name, timeout)
		return result
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			result.Stderr = err.Error()
		}
		return result
	}
	result.Success = true
	return result
}

// CurrentBranch returns the checked-out branch name.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	res := g.run(ctx, metaTimeout, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if !res.Success {
		return "", fmt.Errorf("failed to read current branch: %s", res.Diagnostic())
	}
	return strings.TrimSpace(res.Stdout), nil
}

// CreateBranch creates and checks out branchName. If the branch already
// exists it is checked out instead of failing.
func (g *Git) CreateBranch(ctx context.Context, branchName string) error {
	res := g.run(ctx, metaTimeout, "git", "checkout", "-b", branchName)
	if res.Success {
		return nil
	}
	if strings.Contains(res.Stderr, "already exists") {
		res = g.run(ctx, metaTimeout, "git", "checkout", branchName)
		if res.Success {
			return nil
		}
	}
	return fmt.Errorf("failed to create branch %s: %s", branchName, res.Diagnostic())
}

// Checkout switches to an existing branch, falling back to creating a
// local branch tracking origin when it only exists remotely.
func (g *Git) Checkout(ctx context.Context, branchName string) error {
	res := g.run(ctx, metaTimeout, "git", "checkout", branchName)
	if res.Success {
		return nil
	}
	res = g.run(ctx, metaTimeout, "git", "checkout", "-b", branchName, "origin/"+branchName)
	if res.Success {
		return nil
	}
	return fmt.Errorf("failed to checkout branch %s: %s", branchName, res.Diagnostic())
}

// HasChanges reports whether the working tree has anything to commit.
func (g *Git) HasChanges(ctx context.Context) (bool, error) {
	res := g.run(ctx, metaTimeout, "git", "status", "--porcelain")
	if !res.Success {
		return false, fmt.Errorf("failed to read git status: %s", res.Diagnostic())
	}
	return strings.TrimSpace(res.Stdout) != "", nil
}

// Commit stages everything except the run artifacts directory and commits
// with message. A clean working tree is a successful no-op.
func (g *Git) Commit(ctx context.Context, message string) (committed bool, err error) {
	changed, err := g.HasChanges(ctx)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	res := g.run(ctx, metaTimeout, "git", "add", "-A", "--", ".", ":!"+RunArtifactsDir)
	if !res.Success {
		return false, fmt.Errorf("failed to stage changes: %s", res.Diagnostic())
	}
	// Unstage artifacts that were already tracked; errors here are fine.
	g.run(ctx, metaTimeout, "git", "reset", "HEAD", RunArtifactsDir)

	// When every change sat inside the artifacts directory nothing got
	// staged, and git commit would fail. That tree is a no-op too.
	if g.run(ctx, metaTimeout, "git", "diff", "--cached", "--quiet").Success {
		return false, nil
	}

	res = g.run(ctx, metaTimeout, "git", "commit", "-m", message)
	if !res.Success {
		return false, fmt.Errorf("failed to commit: %s", res.Diagnostic())
	}
	return true, nil
}

// Push pushes branchName to origin, setting the upstream.
func (g *Git) Push(ctx context.Context, branchName string) error {
	res := g.run(ctx, longTimeout, "git", "push", "-u", "origin", branchName)
	if !res.Success {
		return fmt.Errorf("failed to push branch %s: %s", branchName, res.Diagnostic())
	}
	return nil
}

// Pull updates the working copy. upToDate reports the "nothing new" case
// so callers can phrase the status message accordingly.
func (g *Git) Pull(ctx context.Context) (upToDate bool, err error) {
	res := g.run(ctx, longTimeout, "git", "pull")
	if !res.Success {
		return false, fmt.Errorf("git pull failed: %s", res.Diagnostic())
	}
	return strings.Contains(res.Stdout, "Already up to date"), nil
}

// Clone clones cloneURL into the runner's directory.
func (g *Git) Clone(ctx context.Context, cloneURL, dest string) error {
	res := g.run(ctx, longTimeout, "git", "clone", cloneURL, dest)
	if !res.Success {
		return fmt.Errorf("git clone failed: %s", res.Diagnostic())
	}
	return nil
}

// PRExists returns the URL of an open pull request for branchName, or ""
// when none exists.
func (g *Git) PRExists(ctx context.Context, branchName string) (string, error) {
	res := g.run(ctx, metaTimeout, "gh", "pr", "list", "--head", branchName, "--json", "url")
	if !res.Success {
		return "", fmt.Errorf("failed to list pull requests: %s", res.Diagnostic())
	}
	var prs []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(res.Stdout), &prs); err != nil {
		return "", fmt.Errorf("failed to decode gh output: %w", err)
	}
	if len(prs) == 0 {
		return "", nil
	}
	return prs[0].URL, nil
}
