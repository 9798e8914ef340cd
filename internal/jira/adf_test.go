package jira

import (
	"encoding/json"
	"testing"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "plain string",
			raw:      `"Fix the login flow"`,
			expected: "Fix the login flow",
		},
		{
			name:     "empty string",
			raw:      `""`,
			expected: "No description",
		},
		{
			name:     "null",
			raw:      `null`,
			expected: "No description",
		},
		{
			name:     "missing",
			raw:      ``,
			expected: "No description",
		},
		{
			name: "adf document",
			raw: `{"type":"doc","version":1,"content":[
				{"type":"paragraph","content":[{"type":"text","text":"Login fails"}]},
				{"type":"paragraph","content":[{"type":"text","text":"after"},{"type":"text","text":"timeout"}]}
			]}`,
			expected: "Login fails after timeout",
		},
		{
			name:     "adf with no text nodes",
			raw:      `{"type":"doc","content":[{"type":"rule"}]}`,
			expected: "No description",
		},
		{
			name:     "unparseable",
			raw:      `12345`,
			expected: "No description",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractText(json.RawMessage(tt.raw))
			if got != tt.expected {
				t.Errorf("extractText(%s) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}
