package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sourcegraph/conc"

	"github.com/burilovmikhail/hermes-claude-bot/internal/config"
	"github.com/burilovmikhail/hermes-claude-bot/internal/relay"
	"github.com/burilovmikhail/hermes-claude-bot/internal/state"
	"github.com/burilovmikhail/hermes-claude-bot/internal/worker"
	"github.com/burilovmikhail/hermes-claude-bot/pkg/clog"
	"github.com/burilovmikhail/hermes-claude-bot/pkg/storage"
)

var (
	app       = kingpin.New("hermes-worker", "Queue consumer that executes automated development workflows")
	workspace = app.Flag("workspace", "Override the workspace directory").String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}
	if *workspace != "" {
		env.WorkspaceDir = *workspace
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

	svc := worker.NewService(r, state.NewStore(store), env)

	var wg conc.WaitGroup
	wg.Go(func() {
		if err := svc.ServeHTTP(ctx, env.HTTPHost, env.HTTPPort); err != nil {
			slog.Error("http server error", "error", err)
			cancel()
		}
	})
	wg.Go(func() {
		if err := svc.Run(ctx); err != nil {
			slog.Error("worker stopped with error", "error", err)
			cancel()
		}
	})
	wg.Wait()

	slog.Info("worker stopped")
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
