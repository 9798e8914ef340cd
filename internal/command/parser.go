// Package command parses free-text automation commands into structured
// fields. Parsing is pure: no I/O, no logging side effects, so the whole
// surface is testable with example tables.
package command

import (
	"regexp"
	"strings"
)

// DefaultWorkflow is used when the command does not name one.
const DefaultWorkflow = "plan_build"

var (
	workflowPattern = regexp.MustCompile(`(?i)workflow:?\s*(\w+)`)
	ticketPattern   = regexp.MustCompile(`\b([A-Z]+-\d+)\b`)
	repoPattern     = regexp.MustCompile(`(?i)(?:github\.com/|repo:?\s*)([a-zA-Z0-9_-]+/[a-zA-Z0-9_.-]+)`)

	// Alias patterns are tried in order; the first match wins.
	aliasPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:in\s+the\s+)([a-zA-Z0-9_-]+)(?:\s+repo)`),  // "in the bot repo"
		regexp.MustCompile(`(?i)(?:in\s+)([a-zA-Z0-9_-]+)(?:\s+repo)`),        // "in bot repo"
		regexp.MustCompile(`(?i)(?:repo\s+alias:?\s*)([a-zA-Z0-9_-]+)`),       // "repo alias: bot"
	}
)

// Fields is the parse result of one command line.
type Fields struct {
	WorkflowName string
	Ticket       string // e.g. "MS-1234", always uppercase
	TicketPrefix string // e.g. "MS"
	Repo         string // owner/repo, when given explicitly
	Alias        string // registry short name, lowercased
	Description  string // residual text, whitespace collapsed
}

// Parse extracts workflow parameters from the text following the command.
// Ticket extraction is independent of repository extraction: both may match
// the same input. All recognized tokens are stripped from the description.
func Parse(text string) Fields {
	fields := Fields{WorkflowName: DefaultWorkflow}
	remaining := strings.TrimSpace(text)

	if m := workflowPattern.FindStringSubmatch(remaining); m != nil {
		fields.WorkflowName = m[1]
		remaining = workflowPattern.ReplaceAllString(remaining, "")
	}

	if m := ticketPattern.FindStringSubmatch(remaining); m != nil {
		fields.Ticket = strings.ToUpper(m[1])
		fields.TicketPrefix = strings.SplitN(fields.Ticket, "-", 2)[0]
		remaining = ticketPattern.ReplaceAllString(remaining, "")
	}

	if m := repoPattern.FindStringSubmatch(remaining); m != nil {
		fields.Repo = m[1]
		remaining = repoPattern.ReplaceAllString(remaining, "")
	}

	for _, pattern := range aliasPatterns {
		if m := pattern.FindStringSubmatch(remaining); m != nil {
			fields.Alias = strings.ToLower(m[1])
			remaining = pattern.ReplaceAllString(remaining, "")
			break
		}
	}

	fields.Description = strings.Join(strings.Fields(remaining), " ")
	return fields
}

// Validate reports whether the parse result identifies a target repository
// and carries a task description. The returned message is user-facing.
func Validate(fields Fields) (bool, string) {
	if fields.Repo == "" && fields.Alias == "" && fields.Ticket == "" {
		return false, "Please specify repository identification:\n" +
			"- Use 'in the <alias> repo' (e.g., 'in the bot repo')\n" +
			"- Or provide a ticket (e.g., 'MS-1234')\n" +
			"- Or use 'repo:owner/repo' format"
	}
	if fields.Description == "" {
		return false, "Please provide a task description"
	}
	return true, ""
}
