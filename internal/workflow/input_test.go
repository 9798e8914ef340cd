package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTaskInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), TaskInputFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTaskInput(t *testing.T) {
	path := writeTaskInput(t, `{
		"task_id": "t1",
		"title": "fix login",
		"description": "users cannot log in",
		"jira_ticket": "MS-1"
	}`)

	input, err := LoadTaskInput(path, "fallback")
	require.NoError(t, err)
	assert.Equal(t, "t1", input.TaskID)
	assert.Equal(t, "fix login", input.Title)
	assert.Equal(t, "users cannot log in", input.Description)
	assert.Equal(t, "MS-1", input.Ticket)
}

func TestLoadTaskInputDefaults(t *testing.T) {
	path := writeTaskInput(t, `{"description": "just do it"}`)

	input, err := LoadTaskInput(path, "t9")
	require.NoError(t, err)
	assert.Equal(t, "t9", input.TaskID, "task id falls back to the argument")
	assert.Equal(t, "just do it", input.Title, "title falls back to the description")
}

func TestLoadTaskInputErrors(t *testing.T) {
	_, err := LoadTaskInput(filepath.Join(t.TempDir(), "missing.json"), "t1")
	assert.Error(t, err)

	path := writeTaskInput(t, `{"task_id": "t1"}`)
	_, err = LoadTaskInput(path, "t1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither title nor description")

	path = writeTaskInput(t, `not json`)
	_, err = LoadTaskInput(path, "t1")
	assert.Error(t, err)
}
