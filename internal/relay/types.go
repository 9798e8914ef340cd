package relay

import (
	"fmt"
	"time"

	"github.com/burilovmikhail/hermes-claude-bot/internal/jira"
)

// Operation identifies the task variant carried on the queue. The set is
// closed: payloads with an unknown operation are rejected at the queue
// boundary instead of deep inside a handler.
type Operation string

const (
	OpWorkflow  Operation = "workflow"
	OpGitClone  Operation = "git_clone"
	OpGitPull   Operation = "git_pull"
	OpGitRemove Operation = "git_remove"
)

// Task is the queue payload produced by the bot and consumed exactly once
// by a worker. It is never mutated after creation.
type Task struct {
	TaskID    string    `json:"task_id"`
	UserID    int64     `json:"user_id"`
	Operation Operation `json:"operation"`
	CreatedAt time.Time `json:"created_at"`

	// Workflow fields (Operation == OpWorkflow).
	WorkflowName   string      `json:"workflow_name,omitempty"`
	Repo           string      `json:"repo,omitempty"` // owner/repo
	RepoAlias      string      `json:"repo_alias,omitempty"`
	Description    string      `json:"description,omitempty"`
	Ticket         string      `json:"ticket,omitempty"`
	TicketDetails  *jira.Issue `json:"ticket_details,omitempty"`
	ReportingLevel string      `json:"reporting_level,omitempty"`

	// Repository operation fields (OpGitClone, OpGitPull, OpGitRemove).
	ShortName string `json:"short_name,omitempty"`
	RepoURL   string `json:"repo_url,omitempty"`  // owner/repo
	FullURL   string `json:"full_url,omitempty"`  // https clone URL
	RepoID    string `json:"repo_id,omitempty"`   // registry document id
}

// Validate checks the per-operation required field set.
func (t *Task) Validate() error {
	if t.TaskID == "" {
		return fmt.Errorf("task_id is required")
	}
	if t.UserID == 0 {
		return fmt.Errorf("user_id is required")
	}
	switch t.Operation {
	case OpWorkflow:
		if t.Repo == "" {
			return fmt.Errorf("workflow task requires a resolved repo")
		}
		if t.Description == "" {
			return fmt.Errorf("workflow task requires a description")
		}
	case OpGitClone:
		if t.ShortName == "" || t.FullURL == "" {
			return fmt.Errorf("git_clone task requires short_name and full_url")
		}
	case OpGitPull, OpGitRemove:
		if t.ShortName == "" {
			return fmt.Errorf("%s task requires short_name", t.Operation)
		}
	default:
		return fmt.Errorf("unknown operation %q", t.Operation)
	}
	return nil
}

// Status values for workflow progress events.
const (
	StatusStarted  = "started"
	StatusProgress = "progress"
	StatusFinished = "finished"
	StatusFailed   = "failed"
	StatusSuccess  = "success" // repository operations only
)

// StatusEvent is the response payload published by workers. Ephemeral:
// published once, never persisted, at-most-once delivery.
type StatusEvent struct {
	TaskID  string `json:"task_id"`
	UserID  int64  `json:"user_id"`
	Status  string `json:"status"`
	Message string `json:"message"`

	// Set for repository operations so the bot can update the registry.
	Operation Operation `json:"operation,omitempty"`
	RepoID    string    `json:"repo_id,omitempty"`
}
