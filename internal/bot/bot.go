// Package bot is the Telegram front end: it parses commands, resolves
// repositories, enqueues tasks on the relay, and forwards worker status
// events back to the requesting user.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sourcegraph/conc"

	"github.com/burilovmikhail/hermes-claude-bot/internal/jira"
	"github.com/burilovmikhail/hermes-claude-bot/internal/relay"
	"github.com/burilovmikhail/hermes-claude-bot/internal/repo"
	"github.com/burilovmikhail/hermes-claude-bot/internal/report"
)

// Bot wires the Telegram API to the relay and the repository registry.
type Bot struct {
	api      *tgbotapi.BotAPI
	relay    relay.Relay
	registry *repo.Registry
	jira     *jira.Client // nil when Jira is not configured

	authorized map[int64]bool

	mu     sync.Mutex
	levels map[int64]report.Level
}

func New(api *tgbotapi.BotAPI, r relay.Relay, registry *repo.Registry, jiraClient *jira.Client, authorizedUsers []int64) *Bot {
	authorized := make(map[int64]bool, len(authorizedUsers))
	for _, id := range authorizedUsers {
		authorized[id] = true
	}
	return &Bot{
		api:        api,
		relay:      r,
		registry:   registry,
		jira:       jiraClient,
		authorized: authorized,
		levels:     make(map[int64]report.Level),
	}
}

// Run processes Telegram updates and worker status events until ctx is
// canceled.
func (b *Bot) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.api.GetUpdatesChan(updateConfig)

	var wg conc.WaitGroup
	wg.Go(func() {
		if err := b.relay.SubscribeStatus(ctx, b.handleStatusEvent); err != nil && ctx.Err() == nil {
			slog.Error("status subscription ended", "error", err)
		}
	})
	wg.Go(func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	})

	slog.Info("bot started", "username", b.api.Self.UserName)
	for update := range updates {
		if update.Message == nil {
			continue
		}
		b.handleMessage(ctx, update.Message)
	}

	wg.Wait()
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	if !b.authorized[userID] {
		slog.Warn("unauthorized user", "user_id", userID)
		b.send(userID, "You are not authorized to use this bot.")
		return
	}
	if !msg.IsCommand() {
		b.send(userID, "Send a command. Use /help to see what I can do.")
		return
	}

	switch msg.Command() {
	case "start", "help":
		b.handleHelp(userID)
	case "adw":
		b.handleADW(ctx, userID, msg.CommandArguments())
	case "git":
		b.handleGit(ctx, userID, msg.CommandArguments())
	case "report":
		b.handleReport(userID, msg.CommandArguments())
	default:
		b.send(userID, fmt.Sprintf("Unknown command /%s. Use /help.", msg.Command()))
	}
}

func (b *Bot) handleHelp(userID int64) {
	b.send(userID, `I run automated development workflows.

Commands:
/adw [workflow:name] <task description> [TICKET-123] - run a workflow
/git clone <name> <ticket_prefix> <repo_url> - register and clone a repository
/git pull <name> - update a repository
/git remove <name> - remove a repository
/git list - list registered repositories
/report <minimal|basic|detailed|verbose> - set progress verbosity

Examples:
/adw fix the login bug MS-1234
/adw workflow:plan in the backend repo add rate limiting`)
}

// reportingLevel returns the user's configured verbosity, defaulting to
// basic.
func (b *Bot) reportingLevel(userID int64) report.Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	if level, ok := b.levels[userID]; ok {
		return level
	}
	return report.DefaultLevel
}

func (b *Bot) handleReport(userID int64, args string) {
	if args == "" {
		b.send(userID, fmt.Sprintf("Current reporting level: %s\n\nUsage: /report <minimal|basic|detailed|verbose>", b.reportingLevel(userID)))
		return
	}
	if !report.ValidLevel(args) {
		b.send(userID, fmt.Sprintf("Unknown reporting level %q. Choose minimal, basic, detailed or verbose.", args))
		return
	}
	b.mu.Lock()
	b.levels[userID] = report.Level(args)
	b.mu.Unlock()
	b.send(userID, fmt.Sprintf("Reporting level set to %s.", args))
}

// send delivers plain text to a user, logging delivery failures.
func (b *Bot) send(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := b.api.Send(msg); err != nil {
		slog.Error("failed to send message", "user_id", userID, "error", err)
	}
}

// sendMarkdown delivers Markdown-formatted text, falling back to plain
// text when Telegram rejects the formatting.
func (b *Bot) sendMarkdown(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		slog.Warn("markdown send failed, retrying as plain text", "user_id", userID, "error", err)
		b.send(userID, text)
	}
}
