package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burilovmikhail/hermes-claude-bot/internal/config"
	"github.com/burilovmikhail/hermes-claude-bot/internal/relay"
	"github.com/burilovmikhail/hermes-claude-bot/internal/report"
	"github.com/burilovmikhail/hermes-claude-bot/internal/state"
	"github.com/burilovmikhail/hermes-claude-bot/pkg/storage"
)

// recordingRelay captures published status events for assertions.
type recordingRelay struct {
	relay.Relay
	events []*relay.StatusEvent
}

func (r *recordingRelay) PublishStatus(_ context.Context, event *relay.StatusEvent) {
	r.events = append(r.events, event)
}

func newTestService(t *testing.T) (*Service, *recordingRelay) {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rec := &recordingRelay{}
	env := &config.Env{}
	env.WorkspaceDir = t.TempDir()
	return NewService(rec, state.NewStore(local), env), rec
}

func TestHandleGitRemove(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	repoDir := filepath.Join(svc.env.WorkspaceDir, "42", "backend")
	require.NoError(t, os.MkdirAll(repoDir, 0o755))

	task := &relay.Task{
		TaskID:    "t1",
		UserID:    42,
		Operation: relay.OpGitRemove,
		CreatedAt: time.Now().UTC(),
		ShortName: "backend",
		RepoID:    "r1",
	}
	svc.process(ctx, task)

	require.Len(t, rec.events, 1)
	event := rec.events[0]
	assert.Equal(t, relay.StatusSuccess, event.Status)
	assert.Equal(t, relay.OpGitRemove, event.Operation)
	assert.Equal(t, "r1", event.RepoID)
	assert.NoDirExists(t, repoDir)
}

func TestHandleGitRemoveMissingDirIsSuccess(t *testing.T) {
	svc, rec := newTestService(t)

	task := &relay.Task{
		TaskID:    "t1",
		UserID:    42,
		Operation: relay.OpGitRemove,
		ShortName: "ghost",
	}
	svc.process(context.Background(), task)

	require.Len(t, rec.events, 1)
	assert.Equal(t, relay.StatusSuccess, rec.events[0].Status)
}

func TestHandleGitPullUnknownRepo(t *testing.T) {
	svc, rec := newTestService(t)

	task := &relay.Task{
		TaskID:    "t1",
		UserID:    42,
		Operation: relay.OpGitPull,
		ShortName: "ghost",
		RepoID:    "r1",
	}
	svc.process(context.Background(), task)

	require.Len(t, rec.events, 1)
	assert.Equal(t, relay.StatusFailed, rec.events[0].Status)
	assert.Contains(t, rec.events[0].Message, "not found")
}

func TestSendProgressRespectsReportingLevel(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()
	task := &relay.Task{TaskID: "t1", UserID: 42, Operation: relay.OpWorkflow}

	svc.sendProgress(ctx, task, report.LevelMinimal, "Cloning repository: myorg/myrepo")
	assert.Empty(t, rec.events, "technical messages are suppressed at minimal level")

	svc.sendProgress(ctx, task, report.LevelMinimal, "implementation failed")
	require.Len(t, rec.events, 1)
	assert.Equal(t, relay.StatusProgress, rec.events[0].Status)

	svc.sendProgress(ctx, task, report.LevelVerbose, "Cloning repository: myorg/myrepo")
	assert.Len(t, rec.events, 2, "verbose forwards everything")
}

func TestAuthenticatedURL(t *testing.T) {
	svc, _ := newTestService(t)

	svc.env.GitHubToken = "tok"
	assert.Equal(t,
		"https://tok@github.com/a/b.git",
		svc.authenticatedURL("https://github.com/a/b.git"))

	svc.env.GitHubToken = ""
	assert.Equal(t,
		"https://github.com/a/b.git",
		svc.authenticatedURL("https://github.com/a/b.git"))
}

func TestTaskTitle(t *testing.T) {
	long := make([]byte, 120)
	for i := range long {
		long[i] = 'a'
	}

	assert.Equal(t, "fix login", taskTitle(&relay.Task{Description: "fix login\nmore detail"}))
	assert.Len(t, taskTitle(&relay.Task{Description: string(long)}), 80)
}
