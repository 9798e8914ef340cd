package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "runs/abc/state.json", []byte(`{"a":1}`)))

	data, err := s.Read(ctx, "runs/abc/state.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	exists, err := s.Exists(ctx, "runs/abc/state.json")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, "runs/abc/state.json"))
	exists, err = s.Exists(ctx, "runs/abc/state.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorageReadMissing(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Read(context.Background(), "nope.json")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalStorageList(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "repos/42/a.yaml", []byte("a")))
	require.NoError(t, s.Write(ctx, "repos/42/b.yaml", []byte("b")))
	require.NoError(t, s.Write(ctx, "repos/42/sub/c.yaml", []byte("c")))

	paths, err := s.List(ctx, "repos/42")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"repos/42/a.yaml", "repos/42/b.yaml"}, paths)

	paths, err = s.List(ctx, "repos/999")
	require.NoError(t, err)
	assert.Empty(t, paths, "missing prefix lists as empty")
}

func TestLocalStorageOverwrite(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "doc.yaml", []byte("v1")))
	require.NoError(t, s.Write(ctx, "doc.yaml", []byte("v2")))

	data, err := s.Read(ctx, "doc.yaml")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}
