package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/burilovmikhail/hermes-claude-bot/internal/command"
	"github.com/burilovmikhail/hermes-claude-bot/internal/jira"
	"github.com/burilovmikhail/hermes-claude-bot/internal/relay"
	"github.com/burilovmikhail/hermes-claude-bot/internal/repo"
)

const adwUsage = `Please provide task details.

Usage: /adw [workflow:name] <task description> [TICKET-123]

Examples:
  /adw fix the login bug MS-1234
  /adw workflow:plan in the backend repo add rate limiting
  /adw repo:myorg/myrepo implement new feature

Default workflow: ` + command.DefaultWorkflow

// queueWorkflows are the phases runnable from chat. The build phase needs
// the run id of an earlier plan, which the queue does not carry; it is
// only reachable through the adw-build command line tool.
var queueWorkflows = map[string]bool{
	"plan":       true,
	"plan_build": true,
}

func (b *Bot) handleADW(ctx context.Context, userID int64, args string) {
	args = strings.TrimSpace(args)
	if args == "" {
		b.send(userID, adwUsage)
		return
	}

	fields := command.Parse(args)
	if ok, errMsg := command.Validate(fields); !ok {
		b.send(userID, "Invalid command: "+errMsg)
		return
	}
	if !queueWorkflows[fields.WorkflowName] {
		if fields.WorkflowName == "build" {
			b.send(userID, "The build workflow needs the run id of an earlier plan and cannot run from chat. Use adw-build in the repository, or run plan_build here.")
			return
		}
		b.send(userID, fmt.Sprintf("Unknown workflow %q. Available workflows: plan, plan_build.", fields.WorkflowName))
		return
	}

	registration, err := b.resolveRepository(ctx, userID, fields)
	if err != nil {
		b.send(userID, fmt.Sprintf("❌ %v", err))
		return
	}

	task := &relay.Task{
		TaskID:         ulid.Make().String(),
		UserID:         userID,
		Operation:      relay.OpWorkflow,
		CreatedAt:      time.Now().UTC(),
		WorkflowName:   fields.WorkflowName,
		Description:    fields.Description,
		Ticket:         fields.Ticket,
		ReportingLevel: string(b.reportingLevel(userID)),
	}
	if registration != nil {
		task.Repo = registration.RepoURL
		task.RepoAlias = registration.ShortName
	} else {
		task.Repo = fields.Repo
		task.RepoAlias = repoAlias(fields.Repo)
	}

	if fields.Ticket != "" {
		task.TicketDetails = b.fetchTicket(ctx, userID, fields.Ticket)
	}

	if !b.relay.PublishTask(ctx, task) {
		b.send(userID, "Failed to queue the task. Please try again later.")
		return
	}

	var reply strings.Builder
	reply.WriteString("🚀 *Workflow Started*\n\n")
	fmt.Fprintf(&reply, "*Task ID:* `%s`\n", task.TaskID)
	fmt.Fprintf(&reply, "*Workflow:* %s\n", task.WorkflowName)
	fmt.Fprintf(&reply, "*Repository:* %s\n", task.Repo)
	if task.Ticket != "" {
		fmt.Fprintf(&reply, "*Ticket:* %s\n", task.Ticket)
	}
	fmt.Fprintf(&reply, "\n*Task:* %s\n\nI'll notify you when the workflow completes.", task.Description)
	b.sendMarkdown(userID, reply.String())

	slog.Info("workflow task queued", "task_id", task.TaskID, "user_id", userID, "workflow", task.WorkflowName)
}

// resolveRepository turns the parsed repository reference into a registry
// entry. An explicit owner/repo needs no registration; an alias or ticket
// prefix must resolve to one.
func (b *Bot) resolveRepository(ctx context.Context, userID int64, fields command.Fields) (*repo.Registration, error) {
	if fields.Alias != "" {
		registration, err := b.registry.Get(ctx, userID, fields.Alias)
		if err != nil {
			return nil, fmt.Errorf("repository %q is not registered. Use /git clone first", fields.Alias)
		}
		return registration, nil
	}
	if fields.Repo != "" {
		// Prefer a registration matching the explicit repo so the worker
		// reuses its working copy.
		registrations, err := b.registry.List(ctx, userID)
		if err == nil {
			for _, registration := range registrations {
				if strings.EqualFold(registration.RepoURL, fields.Repo) {
					return registration, nil
				}
			}
		}
		return nil, nil
	}
	registration, err := b.registry.GetByPrefix(ctx, userID, fields.TicketPrefix)
	if err != nil {
		return nil, fmt.Errorf("no repository registered for ticket prefix %q. Use /git clone with that prefix first", fields.TicketPrefix)
	}
	return registration, nil
}

// fetchTicket loads tracker details for the run. Failures degrade to a
// warning: the workflow proceeds on the description alone.
func (b *Bot) fetchTicket(ctx context.Context, userID int64, ticket string) *jira.Issue {
	if b.jira == nil {
		return nil
	}
	issue, err := b.jira.GetIssueWithComments(ctx, ticket)
	if err != nil {
		slog.Error("failed to fetch ticket", "ticket", ticket, "error", err)
		b.send(userID, fmt.Sprintf("Warning: could not fetch ticket %s: %v\nProceeding without ticket details.", ticket, err))
		return nil
	}
	return issue
}

// repoAlias derives a working-copy directory name from owner/repo.
func repoAlias(ownerRepo string) string {
	if idx := strings.LastIndexByte(ownerRepo, '/'); idx >= 0 {
		return strings.ToLower(ownerRepo[idx+1:])
	}
	return strings.ToLower(ownerRepo)
}
