package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burilovmikhail/hermes-claude-bot/pkg/cerr"
	"github.com/burilovmikhail/hermes-claude-bot/pkg/storage"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewRegistry(local)
}

func TestNormalizeRepoURL(t *testing.T) {
	tests := []struct {
		input     string
		shortForm string
		fullURL   string
	}{
		{"myorg/myrepo", "myorg/myrepo", "https://github.com/myorg/myrepo.git"},
		{"github.com/myorg/myrepo", "myorg/myrepo", "https://github.com/myorg/myrepo.git"},
		{"https://github.com/myorg/myrepo", "myorg/myrepo", "https://github.com/myorg/myrepo.git"},
		{"https://github.com/myorg/myrepo.git", "myorg/myrepo", "https://github.com/myorg/myrepo.git"},
		{"https://github.com/myorg/myrepo/", "myorg/myrepo", "https://github.com/myorg/myrepo.git"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			shortForm, fullURL := NormalizeRepoURL(tt.input)
			assert.Equal(t, tt.shortForm, shortForm)
			assert.Equal(t, tt.fullURL, fullURL)
		})
	}
}

func TestRegistryCreateAndGet(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	reg := &Registration{
		UserID:     42,
		ShortName:  "Backend",
		JiraPrefix: "MS",
		RepoURL:    "myorg/backend",
		FullURL:    "https://github.com/myorg/backend.git",
	}
	require.NoError(t, registry.Create(ctx, reg))
	assert.NotEmpty(t, reg.ID)
	assert.Equal(t, "backend", reg.ShortName, "short names are lowercased")

	got, err := registry.Get(ctx, 42, "backend")
	require.NoError(t, err)
	assert.Equal(t, "myorg/backend", got.RepoURL)
	assert.Equal(t, "MS", got.JiraPrefix)

	// Lookup is case insensitive through lowercasing.
	got, err = registry.Get(ctx, 42, "BACKEND")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, got.ID)
}

func TestRegistryCreateDuplicate(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	reg := &Registration{UserID: 42, ShortName: "backend", RepoURL: "a/b", FullURL: "https://github.com/a/b.git"}
	require.NoError(t, registry.Create(ctx, reg))

	err := registry.Create(ctx, &Registration{UserID: 42, ShortName: "backend", RepoURL: "c/d", FullURL: "https://github.com/c/d.git"})
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))

	// Same name for a different user is fine.
	require.NoError(t, registry.Create(ctx, &Registration{UserID: 7, ShortName: "backend", RepoURL: "c/d", FullURL: "https://github.com/c/d.git"}))
}

func TestRegistryGetByPrefix(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Create(ctx, &Registration{UserID: 42, ShortName: "backend", JiraPrefix: "MS", RepoURL: "a/b", FullURL: "https://github.com/a/b.git"}))
	require.NoError(t, registry.Create(ctx, &Registration{UserID: 42, ShortName: "api", JiraPrefix: "PROJ", RepoURL: "c/d", FullURL: "https://github.com/c/d.git"}))

	got, err := registry.GetByPrefix(ctx, 42, "ms")
	require.NoError(t, err)
	assert.Equal(t, "backend", got.ShortName)

	_, err = registry.GetByPrefix(ctx, 42, "XX")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestRegistryMarkCloned(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	reg := &Registration{UserID: 42, ShortName: "backend", RepoURL: "a/b", FullURL: "https://github.com/a/b.git"}
	require.NoError(t, registry.Create(ctx, reg))
	assert.False(t, reg.Cloned)

	require.NoError(t, registry.MarkCloned(ctx, 42, "backend", true))

	got, err := registry.Get(ctx, 42, "backend")
	require.NoError(t, err)
	assert.True(t, got.Cloned)
}

func TestRegistryListAndDelete(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Create(ctx, &Registration{UserID: 42, ShortName: "backend", RepoURL: "a/b", FullURL: "https://github.com/a/b.git"}))
	require.NoError(t, registry.Create(ctx, &Registration{UserID: 42, ShortName: "api", RepoURL: "c/d", FullURL: "https://github.com/c/d.git"}))

	regs, err := registry.List(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, regs, 2)

	require.NoError(t, registry.Delete(ctx, 42, "backend"))
	regs, err = registry.List(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, regs, 1)

	err = registry.Delete(ctx, 42, "backend")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}
