package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/burilovmikhail/hermes-claude-bot/internal/bot"
	"github.com/burilovmikhail/hermes-claude-bot/internal/config"
	"github.com/burilovmikhail/hermes-claude-bot/internal/jira"
	"github.com/burilovmikhail/hermes-claude-bot/internal/relay"
	"github.com/burilovmikhail/hermes-claude-bot/internal/repo"
	"github.com/burilovmikhail/hermes-claude-bot/pkg/clog"
	"github.com/burilovmikhail/hermes-claude-bot/pkg/storage"
)

var (
	app   = kingpin.New("hermes-bot", "Telegram front end for automated development workflows")
	debug = app.Flag("debug", "Log Telegram API traffic").Bool()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}
	setupLogger(env)

	store, err := setupStorage(env)
	if err != nil {
		slog.Error("failed to create storage", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	r, err := relay.NewRedisRelay(ctx, env.RedisURL)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer r.Close()

	api, err := tgbotapi.NewBotAPI(env.TelegramToken)
	if err != nil {
		slog.Error("failed to create telegram api client", "error", err)
		os.Exit(1)
	}
	api.Debug = *debug

	var jiraClient *jira.Client
	if env.JiraURL != "" {
		jiraClient = jira.NewClient(env.JiraURL, env.JiraEmail, env.JiraAPIToken)
	} else {
		slog.Warn("jira is not configured, tickets will not be enriched")
	}

	b := bot.New(api, r, repo.NewRegistry(store), jiraClient, env.AuthorizedUsers)
	if err := b.Run(ctx); err != nil {
		slog.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("bot stopped")
}

func setupLogger(env *config.Env) {
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))
}

func setupStorage(env *config.Env) (storage.Storage, error) {
	if env.StorageEnv.Type == "s3" {
		return storage.NewS3Storage(context.Background(), env.S3Bucket, env.S3Prefix, env.S3Region)
	}
	return storage.NewLocalStorage(env.BaseDir)
}
