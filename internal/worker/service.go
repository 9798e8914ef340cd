// Package worker consumes tasks from the relay queue and executes them:
// automated development workflows against a repository working copy, and
// repository maintenance operations (clone, pull, remove).
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/burilovmikhail/hermes-claude-bot/internal/agent"
	"github.com/burilovmikhail/hermes-claude-bot/internal/config"
	"github.com/burilovmikhail/hermes-claude-bot/internal/gitops"
	"github.com/burilovmikhail/hermes-claude-bot/internal/relay"
	"github.com/burilovmikhail/hermes-claude-bot/internal/report"
	"github.com/burilovmikhail/hermes-claude-bot/internal/state"
	"github.com/burilovmikhail/hermes-claude-bot/internal/workflow"
	"github.com/burilovmikhail/hermes-claude-bot/pkg/clog"
)

// popTimeout is how long one queue poll blocks before looping, keeping
// shutdown latency bounded.
const popTimeout = time.Second

// executorFactory builds the agent executor for a working copy. Tests
// substitute a fake so no real agent process is spawned.
type executorFactory func(workDir string) agent.Executor

// Service is the worker: one queue consumer processing tasks serially.
type Service struct {
	relay       relay.Relay
	states      *state.Store
	env         *config.Env
	newExecutor executorFactory
	counters    counters
}

func NewService(r relay.Relay, states *state.Store, env *config.Env) *Service {
	return &Service{
		relay:  r,
		states: states,
		env:    env,
		newExecutor: func(workDir string) agent.Executor {
			return agent.NewClaudeExecutor(workDir, env.SonnetModel, env.OpusModel)
		},
	}
}

// Run polls the queue until ctx is canceled. Malformed or failing tasks
// are reported and skipped; the loop itself only stops on cancellation.
func (s *Service) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.env.WorkspaceDir, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	slog.Info("worker started, waiting for tasks", "workspace", s.env.WorkspaceDir)

	for {
		task, err := s.relay.PopTask(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("failed to pop task", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if task == nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		slog.Info("received task", "task_id", task.TaskID, "operation", task.Operation)
		s.process(ctx, task)
	}
}

func (s *Service) process(ctx context.Context, task *relay.Task) {
	ctx = clog.ContextWithSlog(ctx)
	clog.AddAttribute(ctx, "task_id", task.TaskID)
	clog.AddAttribute(ctx, "operation", string(task.Operation))

	switch task.Operation {
	case relay.OpGitClone:
		s.handleGitClone(ctx, task)
	case relay.OpGitPull:
		s.handleGitPull(ctx, task)
	case relay.OpGitRemove:
		s.handleGitRemove(ctx, task)
	case relay.OpWorkflow:
		s.handleWorkflow(ctx, task)
	default:
		slog.Error("unknown task operation", "task_id", task.TaskID, "operation", task.Operation)
	}
}

// repoDir is where a user's registered repository lives on disk.
func (s *Service) repoDir(userID int64, shortName string) string {
	return filepath.Join(s.env.WorkspaceDir, fmt.Sprintf("%d", userID), shortName)
}

// authenticatedURL injects the GitHub token into an https clone URL.
func (s *Service) authenticatedURL(fullURL string) string {
	if s.env.GitHubToken == "" {
		return fullURL
	}
	return strings.Replace(fullURL,
		"https://github.com/",
		fmt.Sprintf("https://%s@github.com/", s.env.GitHubToken), 1)
}

func (s *Service) handleGitClone(ctx context.Context, task *relay.Task) {
	repoDir := s.repoDir(task.UserID, task.ShortName)

	if _, err := os.Stat(repoDir); err == nil {
		s.sendGitStatus(ctx, task, relay.StatusFailed,
			fmt.Sprintf("Repository directory %q already exists", task.ShortName))
		return
	}
	if err := os.MkdirAll(filepath.Dir(repoDir), 0o755); err != nil {
		s.sendGitStatus(ctx, task, relay.StatusFailed, fmt.Sprintf("Clone error: %v", err))
		return
	}

	git := gitops.New("")
	if err := git.Clone(ctx, s.authenticatedURL(task.FullURL), repoDir); err != nil {
		s.sendGitStatus(ctx, task, relay.StatusFailed, fmt.Sprintf("Clone failed: %v", err))
		return
	}
	s.sendGitStatus(ctx, task, relay.StatusSuccess,
		fmt.Sprintf("Repository cloned successfully: %s", task.ShortName))
}

func (s *Service) handleGitPull(ctx context.Context, task *relay.Task) {
	repoDir := s.repoDir(task.UserID, task.ShortName)

	if _, err := os.Stat(repoDir); err != nil {
		s.sendGitStatus(ctx, task, relay.StatusFailed,
			fmt.Sprintf("Repository %q not found. Clone it first.", task.ShortName))
		return
	}

	upToDate, err := gitops.New(repoDir).Pull(ctx)
	if err != nil {
		s.sendGitStatus(ctx, task, relay.StatusFailed, fmt.Sprintf("Pull failed: %v", err))
		return
	}
	if upToDate {
		s.sendGitStatus(ctx, task, relay.StatusSuccess,
			fmt.Sprintf("Repository %q is already up to date", task.ShortName))
		return
	}
	s.sendGitStatus(ctx, task, relay.StatusSuccess,
		fmt.Sprintf("Repository %q pulled successfully", task.ShortName))
}

func (s *Service) handleGitRemove(ctx context.Context, task *relay.Task) {
	repoDir := s.repoDir(task.UserID, task.ShortName)

	if _, err := os.Stat(repoDir); err != nil {
		// Nothing on disk is still a successful removal.
		s.sendGitStatus(ctx, task, relay.StatusSuccess,
			fmt.Sprintf("Repository %q removed", task.ShortName))
		return
	}
	if err := os.RemoveAll(repoDir); err != nil {
		s.sendGitStatus(ctx, task, relay.StatusFailed, fmt.Sprintf("Remove failed: %v", err))
		return
	}
	s.sendGitStatus(ctx, task, relay.StatusSuccess,
		fmt.Sprintf("Repository %q removed", task.ShortName))
}

func (s *Service) handleWorkflow(ctx context.Context, task *relay.Task) {
	level := report.Level(task.ReportingLevel)
	if !report.ValidLevel(task.ReportingLevel) {
		level = report.DefaultLevel
	}

	s.sendStatus(ctx, task, relay.StatusStarted,
		fmt.Sprintf("Starting workflow: %s", task.WorkflowName))

	summary, err := s.runWorkflow(ctx, task, level)
	s.counters.processed.Add(1)
	if err != nil {
		s.counters.failed.Add(1)
		slog.ErrorContext(ctx, "workflow failed", "error", err)
		s.sendStatus(ctx, task, relay.StatusFailed,
			fmt.Sprintf("Workflow failed: %s", report.Truncate(err.Error(), 500)))
		return
	}

	s.sendStatus(ctx, task, relay.StatusFinished, summary.Render())
	slog.InfoContext(ctx, "task completed")
}

func (s *Service) runWorkflow(ctx context.Context, task *relay.Task, level report.Level) (report.Summary, error) {
	repoDir := s.repoDir(task.UserID, task.RepoAlias)

	if _, err := os.Stat(repoDir); err != nil {
		// Prime the working copy on first use.
		if task.Repo == "" {
			return report.Summary{}, fmt.Errorf("repository %q is not cloned and no clone URL is known", task.RepoAlias)
		}
		s.sendProgress(ctx, task, level, fmt.Sprintf("Cloning repository: %s", task.Repo))
		if err := os.MkdirAll(filepath.Dir(repoDir), 0o755); err != nil {
			return report.Summary{}, err
		}
		cloneURL := s.authenticatedURL(fmt.Sprintf("https://github.com/%s.git", task.Repo))
		if err := gitops.New("").Clone(ctx, cloneURL, repoDir); err != nil {
			return report.Summary{}, err
		}
	} else {
		s.sendProgress(ctx, task, level, fmt.Sprintf("Updating repository: %s", task.RepoAlias))
		if _, err := gitops.New(repoDir).Pull(ctx); err != nil {
			slog.WarnContext(ctx, "failed to update working copy, continuing with current checkout",
				"error", err)
		}
	}

	runID := state.NewRunID()
	doc, err := s.states.CreateOrGet(ctx, runID)
	if err != nil {
		return report.Summary{}, err
	}
	doc.ReportingLevel = string(level)

	git := gitops.New(repoDir)
	chain := workflow.NewChain(s.newExecutor(repoDir), git, s.states, func(message string) {
		s.sendProgress(ctx, task, level, message)
	})

	input := workflow.TaskInput{
		TaskID:        task.TaskID,
		Title:         taskTitle(task),
		Description:   task.Description,
		Ticket:        task.Ticket,
		TicketDetails: task.TicketDetails,
	}

	switch task.WorkflowName {
	case "plan":
		return chain.Plan(ctx, input, doc)
	case "build":
		return chain.Build(ctx, input, doc)
	case "plan_build":
		return chain.PlanBuild(ctx, input, doc)
	default:
		return report.Summary{}, fmt.Errorf("unknown workflow %q", task.WorkflowName)
	}
}

// taskTitle derives a short title when the task has no tracker summary.
func taskTitle(task *relay.Task) string {
	if task.TicketDetails != nil && task.TicketDetails.Summary != "" {
		return task.TicketDetails.Summary
	}
	title := task.Description
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	if len(title) > 80 {
		title = title[:80]
	}
	return title
}

// sendProgress forwards a progress message when the reporting level
// allows it.
func (s *Service) sendProgress(ctx context.Context, task *relay.Task, level report.Level, message string) {
	category := report.Categorize(message)
	if !report.ShouldSend(message, level, category) {
		slog.DebugContext(ctx, "suppressed progress message", "category", category)
		return
	}
	s.sendStatus(ctx, task, relay.StatusProgress, message)
}

func (s *Service) sendStatus(ctx context.Context, task *relay.Task, status, message string) {
	s.relay.PublishStatus(ctx, &relay.StatusEvent{
		TaskID:  task.TaskID,
		UserID:  task.UserID,
		Status:  status,
		Message: message,
	})
}

func (s *Service) sendGitStatus(ctx context.Context, task *relay.Task, status, message string) {
	s.relay.PublishStatus(ctx, &relay.StatusEvent{
		TaskID:    task.TaskID,
		UserID:    task.UserID,
		Status:    status,
		Message:   message,
		Operation: task.Operation,
		RepoID:    task.RepoID,
	})
	slog.InfoContext(ctx, "sent git response", "status", status)
}
