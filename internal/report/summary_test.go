package report

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSummaryRender(t *testing.T) {
	s := Summary{
		BranchName:  "feat-login-fix",
		PlanFile:    "specs/plan.md",
		CommitsMade: 2,
		PRURL:       "https://github.com/a/b/pull/7",
	}
	rendered := s.Render()

	assert.Contains(t, rendered, "• Branch: feat-login-fix")
	assert.Contains(t, rendered, "• Plan: specs/plan.md")
	assert.Contains(t, rendered, "• Commits: 2")
	assert.Contains(t, rendered, "• PR: https://github.com/a/b/pull/7")
	assert.Len(t, strings.Split(rendered, "\n"), 4)
}

func TestSummaryRenderPartial(t *testing.T) {
	rendered := Summary{BranchName: "chore-cleanup"}.Render()
	assert.Equal(t, "• Branch: chore-cleanup", rendered)
}

func TestSummaryRenderEmpty(t *testing.T) {
	assert.Equal(t, "Workflow completed successfully", Summary{}.Render())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcde…", Truncate("abcdefghij", 5))
	assert.Equal(t, "", Truncate("", 5))

	// Never cut a multi-byte rune in half. "é" is two bytes, so a five
	// byte cut would land mid-rune.
	got := Truncate("ééé", 5)
	assert.Equal(t, "éé…", got)
	assert.True(t, utf8.ValidString(got))
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", Clip("short", 10))
	assert.Equal(t, "abcde", Clip("abcdefghij", 5))

	// "日" is three bytes; clipping at five backs off to the rune start.
	got := Clip("日本語", 5)
	assert.Equal(t, "日", got)
	assert.True(t, utf8.ValidString(got))
}
