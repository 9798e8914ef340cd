// Package report decides which worker status messages reach the end user,
// based on a per-run reporting level.
package report

import "strings"

// Category classifies a status message.
type Category string

const (
	CategoryError      Category = "error"
	CategoryCompletion Category = "completion"
	CategoryWorkflow   Category = "workflow"
	CategoryTechnical  Category = "technical"
	CategoryAgent      Category = "agent" // default: raw coding agent output
)

// Level is the user-configurable reporting verbosity.
type Level string

const (
	LevelMinimal  Level = "minimal"
	LevelBasic    Level = "basic" // default
	LevelDetailed Level = "detailed"
	LevelVerbose  Level = "verbose"
)

// DefaultLevel is applied when a run does not specify one.
const DefaultLevel = LevelBasic

// ValidLevel reports whether s names a known reporting level.
func ValidLevel(s string) bool {
	switch Level(s) {
	case LevelMinimal, LevelBasic, LevelDetailed, LevelVerbose:
		return true
	}
	return false
}

var technicalKeywords = []string{
	"setup",
	"copying",
	"copied",
	"installing",
	"installed",
	"created json",
	"prepared",
	"switching to",
	"updating repository",
	"cloning repository",
	"running git",
}

var workflowKeywords = []string{
	"starting workflow",
	"running adw",
	"workflow started",
	"executing",
	"planning",
	"building",
	"testing",
}

var errorKeywords = []string{
	"error",
	"failed",
	"failure",
	"exception",
	"traceback",
}

var completionKeywords = []string{
	"completed",
	"finished",
	"done",
	"success",
}

// Messages that are too low-level even for the detailed level.
var lowLevelPatterns = []string{
	"created json",
	"copied adw",
	"installing dependencies",
	"git checkout",
	"git fetch",
}

// Categorize assigns a message its category by first-match keyword scan.
// Priority order matters: error keywords win over completion, completion
// over workflow, workflow over technical. Unmatched messages are agent
// output.
func Categorize(message string) Category {
	lower := strings.ToLower(message)

	if containsAny(lower, errorKeywords) {
		return CategoryError
	}
	if containsAny(lower, completionKeywords) {
		return CategoryCompletion
	}
	if containsAny(lower, workflowKeywords) {
		return CategoryWorkflow
	}
	if containsAny(lower, technicalKeywords) {
		return CategoryTechnical
	}
	return CategoryAgent
}

// ShouldSend reports whether a message of the given category is forwarded
// to the user at the given reporting level.
func ShouldSend(message string, level Level, category Category) bool {
	switch level {
	case LevelVerbose:
		return true

	case LevelMinimal:
		return category == CategoryCompletion || category == CategoryError

	case LevelBasic:
		switch category {
		case CategoryCompletion, CategoryError, CategoryWorkflow:
			return true
		case CategoryTechnical:
			return false
		}
		// Uncategorized: suppress if the text still looks technical.
		return !containsAny(strings.ToLower(message), technicalKeywords)

	case LevelDetailed:
		switch category {
		case CategoryCompletion, CategoryError, CategoryWorkflow:
			return true
		case CategoryTechnical:
			return !containsAny(strings.ToLower(message), lowLevelPatterns)
		}
		return true
	}

	return true
}

func containsAny(lower string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
