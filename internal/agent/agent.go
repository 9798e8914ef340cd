// Package agent runs the Claude coding agent against a repository working
// copy. Every workflow step is one templated prompt (an agent name plus a
// slash command) executed with a bounded timeout.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	claudeagent "github.com/kazz187/claude-agent-sdk-go"
)

// Model selects which Anthropic model handles a prompt.
type Model string

const (
	ModelSonnet Model = "sonnet"
	ModelOpus   Model = "opus"
)

// TemplateRequest is one templated prompt for the coding agent.
type TemplateRequest struct {
	// AgentName labels the request in logs and artifacts, e.g.
	// "issue_classifier" or "sdlc_planner".
	AgentName string
	// SlashCommand is the command given to the agent, e.g. "/classify".
	SlashCommand string
	// Args are appended to the slash command, space separated.
	Args []string
	// RunID ties the invocation to a workflow run.
	RunID string
	// Model picks sonnet (default) or opus.
	Model Model
}

// Prompt renders the request as the text sent to the agent.
func (r TemplateRequest) Prompt() string {
	if len(r.Args) == 0 {
		return r.SlashCommand
	}
	return r.SlashCommand + " " + strings.Join(r.Args, " ")
}

// PromptResponse is the agent's final answer for one request.
type PromptResponse struct {
	Output    string
	Success   bool
	SessionID string
}

// Executor runs templated prompts. The workflow chain depends on this
// interface so tests can substitute a scripted fake.
type Executor interface {
	Execute(ctx context.Context, req TemplateRequest) (PromptResponse, error)
}

// promptTimeout bounds a single agent invocation. Implementation steps can
// legitimately take a long time.
const promptTimeout = 30 * time.Minute

// ClaudeExecutor runs prompts through the Claude agent SDK against a fixed
// working directory.
type ClaudeExecutor struct {
	workDir     string
	sonnetModel string
	opusModel   string
}

func NewClaudeExecutor(workDir, sonnetModel, opusModel string) *ClaudeExecutor {
	return &ClaudeExecutor{
		workDir:     workDir,
		sonnetModel: sonnetModel,
		opusModel:   opusModel,
	}
}

// Execute runs one templated prompt to completion. The model is selected
// via ANTHROPIC_MODEL, which the agent CLI honors; the SDK options carry
// everything else.
func (e *ClaudeExecutor) Execute(ctx context.Context, req TemplateRequest) (PromptResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, promptTimeout)
	defer cancel()

	model := e.sonnetModel
	if req.Model == ModelOpus {
		model = e.opusModel
	}
	// ANTHROPIC_MODEL is process-global: the options struct has no model
	// or environment field, and the worker runs one prompt at a time.
	// Concurrent executors in one process would race on it.
	if err := os.Setenv("ANTHROPIC_MODEL", model); err != nil {
		return PromptResponse{}, fmt.Errorf("failed to set agent model: %w", err)
	}

	opts := &claudeagent.ClaudeAgentOptions{
		Cwd:            e.workDir,
		PermissionMode: claudeagent.PermissionModeBypassPermissions,
		StderrCallback: func(line string) {
			slog.Debug("agent stderr", "agent", req.AgentName, "run_id", req.RunID, "line", line)
		},
	}

	slog.Info("executing agent prompt",
		"agent", req.AgentName,
		"run_id", req.RunID,
		"command", req.SlashCommand,
		"model", model,
	)

	result, err := claudeagent.RunQuerySync(ctx, req.Prompt(), opts)
	if err != nil {
		return PromptResponse{}, fmt.Errorf("agent %s failed: %w", req.AgentName, err)
	}
	if result.Result == nil {
		return PromptResponse{}, fmt.Errorf("agent %s returned no result", req.AgentName)
	}

	resp := PromptResponse{
		Output:    result.Result.Result,
		Success:   !result.Result.IsError,
		SessionID: result.Result.SessionID,
	}
	slog.Info("agent prompt finished",
		"agent", req.AgentName,
		"run_id", req.RunID,
		"success", resp.Success,
	)
	return resp, nil
}
