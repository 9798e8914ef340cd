package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/burilovmikhail/hermes-claude-bot/internal/relay"
)

// handleStatusEvent forwards one worker status event to its user.
func (b *Bot) handleStatusEvent(ctx context.Context, event *relay.StatusEvent) {
	if event.TaskID == "" || event.UserID == 0 || event.Status == "" {
		slog.Warn("incomplete status event", "task_id", event.TaskID, "status", event.Status)
		return
	}

	switch event.Operation {
	case relay.OpGitClone, relay.OpGitPull, relay.OpGitRemove:
		b.handleGitStatus(ctx, event)
	default:
		b.handleWorkflowStatus(event)
	}
}

func (b *Bot) handleWorkflowStatus(event *relay.StatusEvent) {
	var text string
	switch event.Status {
	case relay.StatusStarted:
		text = fmt.Sprintf("⚙️ *Workflow Started*\n\nTask ID: `%s`\n%s", event.TaskID, event.Message)
	case relay.StatusFinished:
		text = fmt.Sprintf("✅ *Workflow Completed*\n\nTask ID: `%s`\n%s", event.TaskID, event.Message)
	case relay.StatusFailed:
		text = fmt.Sprintf("❌ *Workflow Failed*\n\nTask ID: `%s`\n%s", event.TaskID, event.Message)
	case relay.StatusProgress:
		text = fmt.Sprintf("🔄 *Progress Update*\n\nTask ID: `%s`\n%s", event.TaskID, event.Message)
	default:
		text = fmt.Sprintf("📝 *Update*\n\nTask ID: `%s`\n%s", event.TaskID, event.Message)
	}

	b.sendMarkdown(event.UserID, text)
	slog.Info("forwarded workflow status", "task_id", event.TaskID, "user_id", event.UserID, "status", event.Status)
}

// handleGitStatus updates the registry on successful clones before
// notifying the user.
func (b *Bot) handleGitStatus(ctx context.Context, event *relay.StatusEvent) {
	if event.Operation == relay.OpGitClone && event.Status == relay.StatusSuccess {
		if err := b.markClonedByID(ctx, event.UserID, event.RepoID); err != nil {
			slog.Error("failed to update clone status", "repo_id", event.RepoID, "error", err)
		}
	}

	var text string
	switch event.Status {
	case relay.StatusSuccess:
		text = "✅ " + event.Message
	case relay.StatusFailed:
		text = "❌ " + event.Message
	default:
		text = "ℹ️ " + event.Message
	}

	b.send(event.UserID, text)
	slog.Info("forwarded git status", "task_id", event.TaskID, "user_id", event.UserID, "status", event.Status)
}

// markClonedByID finds the registration carrying repoID and marks it
// cloned. Registrations are keyed by name, so this scans the user's list.
func (b *Bot) markClonedByID(ctx context.Context, userID int64, repoID string) error {
	if repoID == "" {
		return nil
	}
	registrations, err := b.registry.List(ctx, userID)
	if err != nil {
		return err
	}
	for _, registration := range registrations {
		if registration.ID == repoID {
			return b.registry.MarkCloned(ctx, userID, registration.ShortName, true)
		}
	}
	return nil
}
