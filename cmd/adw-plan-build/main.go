// adw-plan-build runs planning and implementation back to back under one
// run id, against the repository in the current directory.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/burilovmikhail/hermes-claude-bot/internal/agent"
	"github.com/burilovmikhail/hermes-claude-bot/internal/config"
	"github.com/burilovmikhail/hermes-claude-bot/internal/gitops"
	"github.com/burilovmikhail/hermes-claude-bot/internal/state"
	"github.com/burilovmikhail/hermes-claude-bot/internal/workflow"
	"github.com/burilovmikhail/hermes-claude-bot/pkg/clog"
	"github.com/burilovmikhail/hermes-claude-bot/pkg/storage"
)

var (
	app    = kingpin.New("adw-plan-build", "Plan and implement a task in the current repository")
	taskID = app.Arg("task-id", "Task identifier").Required().String()
	runID  = app.Arg("run-id", "Existing run to resume; a new run is started when omitted").String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		fatal("failed to load env: %v", err)
	}
	setupLogger(env)

	store, err := setupStorage(env)
	if err != nil {
		fatal("failed to create storage: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	input, err := workflow.LoadTaskInput(workflow.TaskInputFile, *taskID)
	if err != nil {
		fatal("%v", err)
	}

	id := *runID
	if id == "" {
		id = state.NewRunID()
	}
	states := state.NewStore(store)
	doc, err := states.CreateOrGet(ctx, id)
	if err != nil {
		fatal("%v", err)
	}
	color.Cyan("Plan and build run %s for task %s", id, *taskID)

	cwd, err := os.Getwd()
	if err != nil {
		fatal("%v", err)
	}
	executor := agent.NewClaudeExecutor(cwd, env.SonnetModel, env.OpusModel)
	chain := workflow.NewChain(executor, gitops.New(cwd), states, func(message string) {
		color.White("  %s", message)
	})

	summary, err := chain.PlanBuild(ctx, input, doc)
	if err != nil {
		fatal("workflow failed: %v", err)
	}

	color.Green("Workflow completed")
	fmt.Println(summary.Render())
}

func fatal(format string, args ...any) {
	color.Red(format, args...)
	os.Exit(1)
}

func setupLogger(env *config.Env) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: env.SlogLevel()})
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))
}

func setupStorage(env *config.Env) (storage.Storage, error) {
	if env.StorageEnv.Type == "s3" {
		return storage.NewS3Storage(context.Background(), env.S3Bucket, env.S3Prefix, env.S3Region)
	}
	return storage.NewLocalStorage(env.BaseDir)
}
