// Package workflow drives the automated development steps for one task:
// classify, branch, plan, implement, commit, publish. Each step is a
// templated agent prompt or a git operation; progress is persisted to the
// run state after every step so an interrupted run can resume.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/burilovmikhail/hermes-claude-bot/internal/agent"
	"github.com/burilovmikhail/hermes-claude-bot/internal/jira"
	"github.com/burilovmikhail/hermes-claude-bot/internal/report"
	"github.com/burilovmikhail/hermes-claude-bot/internal/state"
)

// Agent names label prompt invocations in logs and run artifacts.
const (
	AgentPlanner         = "sdlc_planner"
	AgentImplementor     = "sdlc_implementor"
	AgentClassifier      = "issue_classifier"
	AgentPlanFinder      = "plan_finder"
	AgentBranchGenerator = "branch_generator"
	AgentPRCreator       = "pr_creator"
)

// TaskInput is everything a run knows about the task being automated.
type TaskInput struct {
	TaskID        string
	Title         string
	Description   string
	Ticket        string
	TicketDetails *jira.Issue
}

// jiraTypeMap classifies a task directly from its tracker issue type,
// skipping the agent round trip.
var jiraTypeMap = map[string]state.TaskClass{
	"bug":         state.ClassBug,
	"story":       state.ClassFeature,
	"task":        state.ClassChore,
	"feature":     state.ClassFeature,
	"improvement": state.ClassFeature,
	"epic":        state.ClassFeature,
}

// classPattern extracts the classification from agent output that may
// carry surrounding explanation. "0" is the agent's explicit "cannot
// classify" answer.
var classPattern = regexp.MustCompile(`(/chore|/bug|/feature|0)`)

// ClassifyTask determines the task class. Tracker issue types are
// authoritative when present; otherwise the classifier agent decides.
func (c *Chain) ClassifyTask(ctx context.Context, input TaskInput, runID string) (state.TaskClass, error) {
	if input.TicketDetails != nil {
		issueType := strings.ToLower(input.TicketDetails.IssueType)
		if class, ok := jiraTypeMap[issueType]; ok {
			slog.Info("classified task by tracker issue type", "issue_type", issueType, "class", class)
			return class, nil
		}
	}

	minimal := map[string]string{
		"title":       input.Title,
		"description": input.Description,
	}
	if input.Ticket != "" {
		minimal["jira_ticket"] = input.Ticket
		if input.TicketDetails != nil {
			minimal["issue_type"] = input.TicketDetails.IssueType
		}
	}
	payload, err := json.Marshal(minimal)
	if err != nil {
		return "", fmt.Errorf("failed to encode classification payload: %w", err)
	}

	resp, err := c.executor.Execute(ctx, agent.TemplateRequest{
		AgentName:    AgentClassifier,
		SlashCommand: "/classify_issue",
		Args:         []string{string(payload)},
		RunID:        runID,
		Model:        agent.ModelSonnet,
	})
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("classification failed: %s", resp.Output)
	}

	output := strings.TrimSpace(resp.Output)
	// Classifiers are asked for the bare label but sometimes answer with a
	// JSON object, with or without a markdown fence.
	var wrapped struct {
		Classification string `json:"classification"`
	}
	if err := agent.ParseJSON(output, &wrapped); err == nil && wrapped.Classification != "" {
		output = strings.TrimSpace(wrapped.Classification)
	}
	class := output
	if m := classPattern.FindString(output); m != "" {
		class = m
	}
	if class == "0" {
		return "", fmt.Errorf("no classification selected: %s", resp.Output)
	}
	if !state.ValidClass(state.TaskClass(class)) {
		return "", fmt.Errorf("invalid classification selected: %s", resp.Output)
	}
	return state.TaskClass(class), nil
}

// GenerateBranchName asks the branch generator agent for a branch name
// derived from the task class and identifiers.
func (c *Chain) GenerateBranchName(ctx context.Context, input TaskInput, class state.TaskClass, runID string) (string, error) {
	taskType := strings.TrimPrefix(string(class), "/")

	info := map[string]string{
		"title":   input.Title,
		"task_id": input.TaskID,
	}
	if input.Ticket != "" {
		info["jira_ticket"] = input.Ticket
	}
	payload, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("failed to encode branch name payload: %w", err)
	}

	resp, err := c.executor.Execute(ctx, agent.TemplateRequest{
		AgentName:    AgentBranchGenerator,
		SlashCommand: "/generate_branch_name",
		Args:         []string{taskType, runID, string(payload)},
		RunID:        runID,
		Model:        agent.ModelSonnet,
	})
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("branch name generation failed: %s", resp.Output)
	}

	branchName := strings.TrimSpace(resp.Output)
	slog.Info("generated branch name", "branch", branchName, "run_id", runID)
	return branchName, nil
}

// BuildPlan runs the planner agent with the classified slash command and a
// rendered task prompt. Tracker metadata and comments are inlined so the
// planner sees the full discussion.
func (c *Chain) BuildPlan(ctx context.Context, input TaskInput, class state.TaskClass, runID string) (agent.PromptResponse, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "# Task: %s\n\n", input.Title)

	if input.TicketDetails != nil {
		d := input.TicketDetails
		fmt.Fprintf(&prompt, "**Jira Ticket:** %s\n", input.Ticket)
		fmt.Fprintf(&prompt, "**Type:** %s\n", orUnknown(d.IssueType))
		fmt.Fprintf(&prompt, "**Priority:** %s\n", orUnknown(d.Priority))
		fmt.Fprintf(&prompt, "**Status:** %s\n\n", orUnknown(d.Status))
		fmt.Fprintf(&prompt, "## Description\n%s\n", d.Description)
		if len(d.Comments) > 0 {
			prompt.WriteString("\n\n## Comments\n")
			for _, comment := range d.Comments {
				fmt.Fprintf(&prompt, "- **%s:** %s\n", comment.Author, comment.Body)
			}
		}
	} else {
		prompt.WriteString(input.Description)
		prompt.WriteString("\n")
	}

	resp, err := c.executor.Execute(ctx, agent.TemplateRequest{
		AgentName:    AgentPlanner,
		SlashCommand: string(class),
		Args:         []string{input.TaskID, runID, prompt.String()},
		RunID:        runID,
		Model:        agent.ModelSonnet,
	})
	if err != nil {
		return agent.PromptResponse{}, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("plan generation failed: %s", resp.Output)
	}
	return resp, nil
}

// FindPlanFile locates the plan file the planner just wrote. The finder
// agent answers with a path, or "0" when it found none.
func (c *Chain) FindPlanFile(ctx context.Context, planOutput, taskID, runID string) (string, error) {
	resp, err := c.executor.Execute(ctx, agent.TemplateRequest{
		AgentName:    AgentPlanFinder,
		SlashCommand: "/find_plan_file",
		Args:         []string{taskID, runID, planOutput},
		RunID:        runID,
		Model:        agent.ModelSonnet,
	})
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("plan file lookup failed: %s", resp.Output)
	}

	filePath := strings.TrimSpace(resp.Output)
	switch {
	case filePath == "0":
		return "", fmt.Errorf("no plan file found in output")
	case filePath != "" && strings.Contains(filePath, "/"):
		return filePath, nil
	default:
		return "", fmt.Errorf("invalid plan file path response: %s", filePath)
	}
}

// ImplementPlan runs the implementor agent against the plan file.
func (c *Chain) ImplementPlan(ctx context.Context, planFile, runID string) (agent.PromptResponse, error) {
	resp, err := c.executor.Execute(ctx, agent.TemplateRequest{
		AgentName:    AgentImplementor,
		SlashCommand: "/implement",
		Args:         []string{planFile},
		RunID:        runID,
		Model:        agent.ModelSonnet,
	})
	if err != nil {
		return agent.PromptResponse{}, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("implementation failed: %s", resp.Output)
	}
	return resp, nil
}

// CreateCommitMessage asks the committer agent for a conventional commit
// message. agentName is the phase that produced the changes.
func (c *Chain) CreateCommitMessage(ctx context.Context, agentName string, input TaskInput, class state.TaskClass, runID string) (string, error) {
	taskType := strings.TrimPrefix(string(class), "/")

	description := report.Clip(input.Description, 200)
	info := map[string]string{
		"title":       input.Title,
		"description": description,
	}
	if input.Ticket != "" {
		info["jira_ticket"] = input.Ticket
	}
	payload, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("failed to encode commit payload: %w", err)
	}

	resp, err := c.executor.Execute(ctx, agent.TemplateRequest{
		AgentName:    agentName + "_committer",
		SlashCommand: "/commit",
		Args:         []string{agentName, taskType, string(payload)},
		RunID:        runID,
		Model:        agent.ModelSonnet,
	})
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("commit message generation failed: %s", resp.Output)
	}

	message := strings.TrimSpace(resp.Output)
	slog.Info("created commit message", "message", message, "run_id", runID)
	return message, nil
}

// CreatePullRequest asks the PR creator agent to open a pull request for
// the pushed branch and returns its URL.
func (c *Chain) CreatePullRequest(ctx context.Context, branchName string, input TaskInput, planFile, runID string) (string, error) {
	if planFile == "" {
		planFile = "No plan file"
	}

	title := input.Title
	if input.Ticket != "" {
		title = fmt.Sprintf("[%s] %s", input.Ticket, title)
	}
	issue := map[string]any{
		"number": input.TaskID,
		"title":  title,
		"body":   input.Description,
		"labels": []string{},
	}
	payload, err := json.Marshal(issue)
	if err != nil {
		return "", fmt.Errorf("failed to encode pull request payload: %w", err)
	}

	resp, err := c.executor.Execute(ctx, agent.TemplateRequest{
		AgentName:    AgentPRCreator,
		SlashCommand: "/pull_request",
		Args:         []string{branchName, string(payload), planFile, runID},
		RunID:        runID,
		Model:        agent.ModelSonnet,
	})
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("pull request creation failed: %s", resp.Output)
	}

	prURL := strings.TrimSpace(resp.Output)
	slog.Info("created pull request", "url", prURL, "run_id", runID)
	return prURL, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
