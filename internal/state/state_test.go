package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burilovmikhail/hermes-claude-bot/pkg/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewStore(local)
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	assert.Len(t, id, 8)
	assert.NotEqual(t, id, NewRunID())
}

func TestLoadMissingIsNotError(t *testing.T) {
	store := newTestStore(t)

	doc, found, err := store.Load(context.Background(), "nope1234")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, doc)
}

func TestCreateOrGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc, err := store.CreateOrGet(ctx, "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "abcd1234", doc.RunID)

	doc.BranchName = "feat-x"
	doc.PlanFile = "specs/plan.md"
	doc.TaskClass = ClassFeature
	require.NoError(t, store.Save(ctx, doc, "test"))

	loaded, found, err := store.Load(ctx, "abcd1234")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, doc, loaded)
}

func TestCreateOrGetReturnsExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc, err := store.CreateOrGet(ctx, "abcd1234")
	require.NoError(t, err)
	doc.BranchName = "feat-x"
	require.NoError(t, store.Save(ctx, doc, "test"))

	again, err := store.CreateOrGet(ctx, "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "feat-x", again.BranchName)
}

func TestMergeOverlaysNonEmptyOnly(t *testing.T) {
	doc := &Document{
		RunID:      "abcd1234",
		BranchName: "feat-x",
		PlanFile:   "specs/plan.md",
	}
	doc.Merge(&Document{TaskClass: ClassBug, BranchName: "feat-y"})

	assert.Equal(t, ClassBug, doc.TaskClass)
	assert.Equal(t, "feat-y", doc.BranchName)
	assert.Equal(t, "specs/plan.md", doc.PlanFile, "empty patch fields must not clear state")
}

func TestSaveUnchangedIsNoOp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc, err := store.CreateOrGet(ctx, "abcd1234")
	require.NoError(t, err)
	doc.BranchName = "feat-x"
	require.NoError(t, store.Save(ctx, doc, "first"))
	require.NoError(t, store.Save(ctx, doc, "second"))

	loaded, found, err := store.Load(ctx, "abcd1234")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "feat-x", loaded.BranchName)
}

func TestValidClass(t *testing.T) {
	assert.True(t, ValidClass(ClassChore))
	assert.True(t, ValidClass(ClassBug))
	assert.True(t, ValidClass(ClassFeature))
	assert.False(t, ValidClass("/refactor"))
	assert.False(t, ValidClass("feature"))
	assert.False(t, ValidClass(""))
}
