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

// initTestRepo creates a git repository with one commit so Commit runs
// against a real index.
func initTestRepo(t *testing.T) *Git {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	dir := t.TempDir()
	g := New(dir)
	ctx := context.Background()
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "worker@example.com"},
		{"config", "user.name", "worker"},
	} {
		res := g.run(ctx, metaTimeout, "git", args...)
		require.True(t, res.Success, res.Diagnostic())
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("readme\n"), 0o644))
	committed, err := g.Commit(ctx, "initial commit")
	require.NoError(t, err)
	require.True(t, committed)
	return g
}

func writeWorkFile(t *testing.T, g *Git, rel, content string) {
	t.Helper()
	path := filepath.Join(g.dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCommitCleanTreeIsNoOp(t *testing.T) {
	g := initTestRepo(t)

	committed, err := g.Commit(context.Background(), "nothing to do")
	require.NoError(t, err)
	assert.False(t, committed)
}

func TestCommitSkipsArtifactsOnlyChanges(t *testing.T) {
	g := initTestRepo(t)
	writeWorkFile(t, g, RunArtifactsDir+"log.txt", "agent output\n")

	committed, err := g.Commit(context.Background(), "should not happen")
	require.NoError(t, err)
	assert.False(t, committed, "changes confined to the artifacts directory are a no-op")
}

func TestCommitExcludesArtifacts(t *testing.T) {
	g := initTestRepo(t)
	ctx := context.Background()
	writeWorkFile(t, g, "main.go", "package main\n")
	writeWorkFile(t, g, RunArtifactsDir+"log.txt", "agent output\n")

	committed, err := g.Commit(ctx, "add main")
	require.NoError(t, err)
	assert.True(t, committed)

	res := g.run(ctx, metaTimeout, "git", "ls-files")
	require.True(t, res.Success, res.Diagnostic())
	assert.Contains(t, res.Stdout, "main.go")
	assert.NotContains(t, res.Stdout, "log.txt")

	// The artifacts stayed in the working tree, just untracked.
	res = g.run(ctx, metaTimeout, "git", "status", "--porcelain")
	require.True(t, res.Success, res.Diagnostic())
	assert.True(t, strings.Contains(res.Stdout, RunArtifactsDir), res.Stdout)
}

func TestResultDiagnostic(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		expected string
	}{
		{"stderr preferred", Result{Stdout: "out", Stderr: "err text\n"}, "err text"},
		{"stdout fallback", Result{Stdout: "out text\n"}, "out text"},
		{"whitespace stderr falls back", Result{Stdout: "out", Stderr: "  \n"}, "out"},
		{"both empty", Result{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Diagnostic(); got != tt.expected {
				t.Errorf("Diagnostic() = %q, want %q", got, tt.expected)
			}
		})
	}
}
