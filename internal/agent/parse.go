package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON decodes a JSON value from agent output, tolerating markdown
// code fences around the payload. Agents are asked for bare JSON but
// frequently wrap it anyway.
func ParseJSON(output string, v any) error {
	text := strings.TrimSpace(output)

	if strings.HasPrefix(text, "```") {
		if start := strings.Index(text, "\n"); start >= 0 {
			text = text[start+1:]
		}
		if end := strings.LastIndex(text, "```"); end >= 0 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}

	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("failed to parse agent JSON output: %w", err)
	}
	return nil
}
