package report

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Summary holds the facts worth repeating when a workflow finishes.
type Summary struct {
	BranchName  string
	PlanFile    string
	CommitsMade int
	PRURL       string
}

// Render produces the short bullet list appended to the "finished" status.
func (s Summary) Render() string {
	var parts []string
	if s.BranchName != "" {
		parts = append(parts, fmt.Sprintf("Branch: %s", s.BranchName))
	}
	if s.PlanFile != "" {
		parts = append(parts, fmt.Sprintf("Plan: %s", s.PlanFile))
	}
	if s.CommitsMade > 0 {
		parts = append(parts, fmt.Sprintf("Commits: %d", s.CommitsMade))
	}
	if s.PRURL != "" {
		parts = append(parts, fmt.Sprintf("PR: %s", s.PRURL))
	}
	if len(parts) == 0 {
		return "Workflow completed successfully"
	}
	for i, part := range parts {
		parts[i] = "• " + part
	}
	return strings.Join(parts, "\n")
}

// Clip bounds s to at most max bytes without splitting a UTF-8 rune.
func Clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// Truncate bounds diagnostic text before it is shown to a user.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return Clip(s, max) + "…"
}
