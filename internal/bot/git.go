package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/burilovmikhail/hermes-claude-bot/internal/relay"
	"github.com/burilovmikhail/hermes-claude-bot/internal/repo"
)

const gitUsage = `Please provide a git command.

Usage:
  /git clone <name> <ticket_prefix> <repo_url>
  /git pull <name>
  /git remove <name>
  /git list

Examples:
  /git clone backend MS myorg/backend-api
  /git clone api PROJ github.com/myorg/api-service
  /git pull backend`

func (b *Bot) handleGit(ctx context.Context, userID int64, args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		b.send(userID, gitUsage)
		return
	}

	switch parts[0] {
	case "clone":
		if len(parts) != 4 {
			b.send(userID, "❌ Invalid clone command.\n\nRequired: /git clone <name> <ticket_prefix> <repo_url>\nExample: /git clone backend MS myorg/backend-api")
			return
		}
		b.handleGitClone(ctx, userID, parts[1], parts[2], parts[3])
	case "pull":
		if len(parts) != 2 {
			b.send(userID, "❌ Invalid pull command.\n\nRequired: /git pull <name>\nExample: /git pull backend")
			return
		}
		b.handleGitPull(ctx, userID, parts[1])
	case "remove":
		if len(parts) != 2 {
			b.send(userID, "❌ Invalid remove command.\n\nRequired: /git remove <name>\nExample: /git remove backend")
			return
		}
		b.handleGitRemove(ctx, userID, parts[1])
	case "list":
		b.handleGitList(ctx, userID)
	default:
		b.send(userID, fmt.Sprintf("❌ Unknown git operation %q.\n\n%s", parts[0], gitUsage))
	}
}

func (b *Bot) handleGitClone(ctx context.Context, userID int64, shortName, prefix, repoURL string) {
	shortForm, fullURL := repo.NormalizeRepoURL(repoURL)

	registration := &repo.Registration{
		UserID:     userID,
		ShortName:  shortName,
		JiraPrefix: strings.ToUpper(prefix),
		RepoURL:    shortForm,
		FullURL:    fullURL,
	}
	if err := b.registry.Create(ctx, registration); err != nil {
		b.send(userID, fmt.Sprintf("❌ %v", err))
		return
	}

	task := &relay.Task{
		TaskID:    ulid.Make().String(),
		UserID:    userID,
		Operation: relay.OpGitClone,
		CreatedAt: time.Now().UTC(),
		ShortName: registration.ShortName,
		RepoURL:   shortForm,
		FullURL:   fullURL,
		RepoID:    registration.ID,
	}
	if !b.relay.PublishTask(ctx, task) {
		b.send(userID, "Failed to queue clone task. Repository saved but not cloned yet.")
		return
	}

	b.sendMarkdown(userID, fmt.Sprintf(
		"🔄 *Cloning Repository*\n\n*Name:* %s\n*Ticket Prefix:* %s\n*Repository:* %s\n\nI'll notify you when the clone completes.",
		registration.ShortName, registration.JiraPrefix, shortForm))
	slog.Info("clone task queued", "task_id", task.TaskID, "user_id", userID, "short_name", registration.ShortName)
}

func (b *Bot) handleGitPull(ctx context.Context, userID int64, shortName string) {
	registration, err := b.registry.Get(ctx, userID, shortName)
	if err != nil {
		b.send(userID, fmt.Sprintf("❌ Repository %q not found.\n\nUse /git clone to add a repository first.", shortName))
		return
	}

	task := &relay.Task{
		TaskID:    ulid.Make().String(),
		UserID:    userID,
		Operation: relay.OpGitPull,
		CreatedAt: time.Now().UTC(),
		ShortName: registration.ShortName,
		RepoURL:   registration.RepoURL,
		FullURL:   registration.FullURL,
		RepoID:    registration.ID,
	}
	if !b.relay.PublishTask(ctx, task) {
		b.send(userID, "Failed to queue pull task. Please try again later.")
		return
	}

	b.sendMarkdown(userID, fmt.Sprintf(
		"🔄 *Pulling Repository*\n\n*Name:* %s\n*Repository:* %s\n\nI'll notify you when the pull completes.",
		registration.ShortName, registration.RepoURL))
	slog.Info("pull task queued", "task_id", task.TaskID, "user_id", userID, "short_name", registration.ShortName)
}

func (b *Bot) handleGitRemove(ctx context.Context, userID int64, shortName string) {
	registration, err := b.registry.Get(ctx, userID, shortName)
	if err != nil {
		b.send(userID, fmt.Sprintf("❌ Repository %q not found.", shortName))
		return
	}
	if err := b.registry.Delete(ctx, userID, shortName); err != nil {
		b.send(userID, fmt.Sprintf("❌ %v", err))
		return
	}

	task := &relay.Task{
		TaskID:    ulid.Make().String(),
		UserID:    userID,
		Operation: relay.OpGitRemove,
		CreatedAt: time.Now().UTC(),
		ShortName: registration.ShortName,
		RepoURL:   registration.RepoURL,
		RepoID:    registration.ID,
	}
	if !b.relay.PublishTask(ctx, task) {
		b.send(userID, fmt.Sprintf("Repository %q unregistered, but the working copy could not be scheduled for removal.", shortName))
		return
	}
	b.send(userID, fmt.Sprintf("Repository %q unregistered. Removing its working copy.", shortName))
	slog.Info("remove task queued", "task_id", task.TaskID, "user_id", userID, "short_name", registration.ShortName)
}

func (b *Bot) handleGitList(ctx context.Context, userID int64) {
	registrations, err := b.registry.List(ctx, userID)
	if err != nil {
		b.send(userID, fmt.Sprintf("❌ Failed to list repositories: %v", err))
		return
	}
	if len(registrations) == 0 {
		b.send(userID, "No repositories registered. Use /git clone to add one.")
		return
	}

	var reply strings.Builder
	reply.WriteString("📚 *Registered Repositories*\n")
	for _, registration := range registrations {
		status := "not cloned"
		if registration.Cloned {
			status = "cloned"
		}
		fmt.Fprintf(&reply, "\n*%s* (%s)\n  %s\n  prefix: %s\n",
			registration.ShortName, status, registration.RepoURL, registration.JiraPrefix)
	}
	b.sendMarkdown(userID, reply.String())
}
