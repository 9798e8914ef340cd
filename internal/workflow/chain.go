package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/burilovmikhail/hermes-claude-bot/internal/agent"
	"github.com/burilovmikhail/hermes-claude-bot/internal/report"
	"github.com/burilovmikhail/hermes-claude-bot/internal/state"
)

// Reporter receives human-readable progress messages during a run. The
// caller decides which of them reach the end user.
type Reporter func(message string)

// GitClient is the subset of version control operations the chain needs.
// Satisfied by gitops.Git.
type GitClient interface {
	CreateBranch(ctx context.Context, branchName string) error
	Checkout(ctx context.Context, branchName string) error
	Commit(ctx context.Context, message string) (committed bool, err error)
	Push(ctx context.Context, branchName string) error
	PRExists(ctx context.Context, branchName string) (string, error)
}

// Chain executes workflow phases for one repository working copy.
type Chain struct {
	executor agent.Executor
	git      GitClient
	states   *state.Store
	report   Reporter
}

func NewChain(executor agent.Executor, git GitClient, states *state.Store, reporter Reporter) *Chain {
	if reporter == nil {
		reporter = func(string) {}
	}
	return &Chain{
		executor: executor,
		git:      git,
		states:   states,
		report:   reporter,
	}
}

// Plan runs the planning phase: classify, branch, plan, locate the plan
// file, commit it, and publish the branch. The document is saved after
// every step so a crashed run resumes instead of repeating completed work.
func (c *Chain) Plan(ctx context.Context, input TaskInput, doc *state.Document) (report.Summary, error) {
	var summary report.Summary

	doc.Merge(&state.Document{
		TaskID:          input.TaskID,
		Ticket:          input.Ticket,
		TaskTitle:       input.Title,
		TaskDescription: input.Description,
	})
	if err := c.states.Save(ctx, doc, "plan_start"); err != nil {
		return summary, err
	}

	// Classify.
	if doc.TaskClass == "" {
		c.report("Planning: classifying task")
		class, err := c.ClassifyTask(ctx, input, doc.RunID)
		if err != nil {
			return summary, fmt.Errorf("failed to classify task: %w", err)
		}
		doc.TaskClass = class
		if err := c.states.Save(ctx, doc, "classify"); err != nil {
			return summary, err
		}
	}
	slog.Info("task classified", "run_id", doc.RunID, "class", doc.TaskClass)

	// Branch.
	if doc.BranchName == "" {
		branchName, err := c.GenerateBranchName(ctx, input, doc.TaskClass, doc.RunID)
		if err != nil {
			return summary, fmt.Errorf("failed to generate branch name: %w", err)
		}
		if err := c.git.CreateBranch(ctx, branchName); err != nil {
			return summary, err
		}
		doc.BranchName = branchName
		if err := c.states.Save(ctx, doc, "branch"); err != nil {
			return summary, err
		}
	} else if err := c.git.Checkout(ctx, doc.BranchName); err != nil {
		return summary, err
	}
	summary.BranchName = doc.BranchName
	c.report(fmt.Sprintf("Planning: working on branch %s", doc.BranchName))

	// Plan.
	if doc.PlanFile == "" {
		c.report("Planning: building implementation plan")
		planResp, err := c.BuildPlan(ctx, input, doc.TaskClass, doc.RunID)
		if err != nil {
			return summary, err
		}
		planFile, err := c.FindPlanFile(ctx, planResp.Output, input.TaskID, doc.RunID)
		if err != nil {
			return summary, err
		}
		doc.PlanFile = planFile
		if err := c.states.Save(ctx, doc, "plan"); err != nil {
			return summary, err
		}
	}
	summary.PlanFile = doc.PlanFile
	c.report(fmt.Sprintf("Planning: plan created at %s", doc.PlanFile))

	// Commit and publish.
	committed, err := c.commitPhase(ctx, AgentPlanner, input, doc)
	if err != nil {
		return summary, err
	}
	if committed {
		summary.CommitsMade++
	}

	prURL, err := c.finalize(ctx, input, doc)
	if err != nil {
		return summary, err
	}
	summary.PRURL = prURL

	if err := c.states.Save(ctx, doc, "plan_done"); err != nil {
		return summary, err
	}
	c.report("Planning phase completed")
	return summary, nil
}

// Build runs the implementation phase against a plan produced earlier. It
// refuses to run without a persisted branch and plan file: the run id is
// the only link to the plan, and guessing would implement the wrong one.
func (c *Chain) Build(ctx context.Context, input TaskInput, doc *state.Document) (report.Summary, error) {
	var summary report.Summary

	if doc.BranchName == "" {
		return summary, fmt.Errorf("no branch name in run state, run the planning phase first")
	}
	if doc.PlanFile == "" {
		return summary, fmt.Errorf("no plan file in run state, run the planning phase first")
	}

	if err := c.git.Checkout(ctx, doc.BranchName); err != nil {
		return summary, err
	}
	summary.BranchName = doc.BranchName
	summary.PlanFile = doc.PlanFile
	c.report(fmt.Sprintf("Building: implementing plan %s", doc.PlanFile))

	if _, err := c.ImplementPlan(ctx, doc.PlanFile, doc.RunID); err != nil {
		return summary, err
	}
	c.report("Building: solution implemented")

	// Classification is normally inherited from planning. When building
	// standalone without it, classify now and fall back to /feature on
	// failure rather than aborting a finished implementation.
	if doc.TaskClass == "" {
		class, err := c.ClassifyTask(ctx, input, doc.RunID)
		if err != nil {
			slog.Warn("classification failed, defaulting to /feature", "run_id", doc.RunID, "error", err)
			class = state.ClassFeature
		}
		doc.TaskClass = class
		if err := c.states.Save(ctx, doc, "build_classify"); err != nil {
			return summary, err
		}
	}

	committed, err := c.commitPhase(ctx, AgentImplementor, input, doc)
	if err != nil {
		return summary, err
	}
	if committed {
		summary.CommitsMade++
	}

	prURL, err := c.finalize(ctx, input, doc)
	if err != nil {
		return summary, err
	}
	summary.PRURL = prURL

	if err := c.states.Save(ctx, doc, "build_done"); err != nil {
		return summary, err
	}
	c.report("Building phase completed")
	return summary, nil
}

// PlanBuild runs both phases back to back under one run id.
func (c *Chain) PlanBuild(ctx context.Context, input TaskInput, doc *state.Document) (report.Summary, error) {
	planSummary, err := c.Plan(ctx, input, doc)
	if err != nil {
		return planSummary, err
	}
	buildSummary, err := c.Build(ctx, input, doc)
	if err != nil {
		return buildSummary, err
	}
	buildSummary.CommitsMade += planSummary.CommitsMade
	return buildSummary, nil
}

// commitPhase generates a commit message and commits the working tree. A
// clean tree is a no-op, not an error.
func (c *Chain) commitPhase(ctx context.Context, agentName string, input TaskInput, doc *state.Document) (bool, error) {
	message, err := c.CreateCommitMessage(ctx, agentName, input, doc.TaskClass, doc.RunID)
	if err != nil {
		return false, err
	}
	committed, err := c.git.Commit(ctx, message)
	if err != nil {
		return false, err
	}
	if committed {
		slog.Info("committed changes", "run_id", doc.RunID, "message", message)
	} else {
		slog.Info("nothing to commit", "run_id", doc.RunID)
	}
	return committed, nil
}

// finalize pushes the branch and makes sure a pull request exists,
// reusing an open one when found.
func (c *Chain) finalize(ctx context.Context, input TaskInput, doc *state.Document) (string, error) {
	if err := c.git.Push(ctx, doc.BranchName); err != nil {
		return "", err
	}
	slog.Info("pushed branch", "run_id", doc.RunID, "branch", doc.BranchName)

	prURL, err := c.git.PRExists(ctx, doc.BranchName)
	if err != nil {
		slog.Warn("failed to check for existing pull request", "run_id", doc.RunID, "error", err)
	}
	if prURL != "" {
		slog.Info("found existing pull request", "run_id", doc.RunID, "url", prURL)
		return prURL, nil
	}

	prURL, err = c.CreatePullRequest(ctx, doc.BranchName, input, doc.PlanFile, doc.RunID)
	if err != nil {
		return "", err
	}
	return prURL, nil
}
