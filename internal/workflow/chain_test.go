package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burilovmikhail/hermes-claude-bot/internal/agent"
	"github.com/burilovmikhail/hermes-claude-bot/internal/state"
	"github.com/burilovmikhail/hermes-claude-bot/pkg/storage"
)

// fakeGit records version control calls without touching a repository.
type fakeGit struct {
	created    []string
	checkedOut []string
	commits    []string
	pushed     []string
	existingPR string
	hasChanges bool
}

func (g *fakeGit) CreateBranch(_ context.Context, branchName string) error {
	g.created = append(g.created, branchName)
	return nil
}

func (g *fakeGit) Checkout(_ context.Context, branchName string) error {
	g.checkedOut = append(g.checkedOut, branchName)
	return nil
}

func (g *fakeGit) Commit(_ context.Context, message string) (bool, error) {
	if !g.hasChanges {
		return false, nil
	}
	g.commits = append(g.commits, message)
	return true, nil
}

func (g *fakeGit) Push(_ context.Context, branchName string) error {
	g.pushed = append(g.pushed, branchName)
	return nil
}

func (g *fakeGit) PRExists(_ context.Context, _ string) (string, error) {
	return g.existingPR, nil
}

func newFakeGitChain(t *testing.T, fake *fakeExecutor, git *fakeGit) *Chain {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewChain(fake, git, state.NewStore(local), nil)
}

func TestPlanResumesCompletedSteps(t *testing.T) {
	fake := &fakeExecutor{responses: map[string]agent.PromptResponse{
		"/commit": {Output: "feat: add thing", Success: true},
	}}
	git := &fakeGit{hasChanges: true, existingPR: "https://github.com/o/r/pull/7"}
	chain := newFakeGitChain(t, fake, git)

	doc := &state.Document{
		RunID:      "run00001",
		TaskClass:  state.ClassFeature,
		BranchName: "feat-add-thing-run00001",
		PlanFile:   "specs/plan.md",
	}
	summary, err := chain.Plan(context.Background(), TaskInput{TaskID: "t1", Title: "add thing", Description: "add the thing"}, doc)
	require.NoError(t, err)

	// Classification, branch generation and planning were already done, so
	// the only agent work left is the commit message.
	require.Len(t, fake.requests, 1)
	assert.Equal(t, "/commit", fake.requests[0].SlashCommand)
	assert.Empty(t, git.created, "existing branch is checked out, not recreated")
	assert.Equal(t, []string{"feat-add-thing-run00001"}, git.checkedOut)
	assert.Equal(t, []string{"feat-add-thing-run00001"}, git.pushed)

	assert.Equal(t, "feat-add-thing-run00001", summary.BranchName)
	assert.Equal(t, "specs/plan.md", summary.PlanFile)
	assert.Equal(t, 1, summary.CommitsMade)
	assert.Equal(t, "https://github.com/o/r/pull/7", summary.PRURL, "open pull request is reused")
}

func TestPlanCleanTreeCommitIsNoOp(t *testing.T) {
	fake := &fakeExecutor{responses: map[string]agent.PromptResponse{
		"/commit": {Output: "chore: noop", Success: true},
	}}
	git := &fakeGit{hasChanges: false, existingPR: "https://github.com/o/r/pull/9"}
	chain := newFakeGitChain(t, fake, git)

	doc := &state.Document{
		RunID:      "run00002",
		TaskClass:  state.ClassChore,
		BranchName: "chore-x-run00002",
		PlanFile:   "specs/plan.md",
	}
	summary, err := chain.Plan(context.Background(), TaskInput{TaskID: "t2", Title: "x", Description: "y"}, doc)
	require.NoError(t, err)
	assert.Empty(t, git.commits)
	assert.Zero(t, summary.CommitsMade)
}

func TestBuildRefusesWithoutBranch(t *testing.T) {
	fake := &fakeExecutor{}
	chain := newTestChain(t, fake)

	doc := &state.Document{RunID: "run00001", PlanFile: "specs/plan.md"}
	_, err := chain.Build(context.Background(), TaskInput{TaskID: "t1", Title: "x", Description: "y"}, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no branch name in run state")
	assert.Empty(t, fake.requests, "refusal must happen before any agent work")
}

func TestBuildRefusesWithoutPlanFile(t *testing.T) {
	fake := &fakeExecutor{}
	chain := newTestChain(t, fake)

	doc := &state.Document{RunID: "run00001", BranchName: "feat-x"}
	_, err := chain.Build(context.Background(), TaskInput{TaskID: "t1", Title: "x", Description: "y"}, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no plan file in run state")
	assert.Empty(t, fake.requests)
}
