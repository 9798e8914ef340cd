package jira

import (
	"encoding/json"
	"strings"
)

// extractText flattens a Jira description or comment body to plain text.
// The field may be a plain string (API v2 style) or an Atlassian Document
// Format tree (API v3).
func extractText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "No description"
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "No description"
		}
		return s
	}

	var node adfNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return "No description"
	}
	text := collectADFText(&node)
	if text == "" {
		return "No description"
	}
	return text
}

type adfNode struct {
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

func collectADFText(node *adfNode) string {
	var parts []string
	if node.Text != "" {
		parts = append(parts, node.Text)
	}
	for i := range node.Content {
		if child := collectADFText(&node.Content[i]); child != "" {
			parts = append(parts, child)
		}
	}
	return strings.Join(parts, " ")
}
