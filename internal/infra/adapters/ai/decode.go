// File: internal/infra/adapters/ai/decode.go
package ai

import (
	"encoding/json"
	"strings"
)

// StripFence removes a single leading and trailing markdown fence line
// (```json ... ```) when present. Anything else passes through untouched.
func StripFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	lines := strings.Split(cleaned, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// DecodeResult parses a model response into a generic document. Responses
// that are not valid JSON degrade to a fallback object carrying the raw
// text in the summary field; this function never fails.
func DecodeResult(text string) map[string]any {
	cleaned := StripFence(text)

	var out map[string]any
	if err := json.Unmarshal([]byte(cleaned), &out); err == nil && out != nil {
		return out
	}
	return map[string]any{
		"summary":              cleaned,
		"effective_keywords":   []any{},
		"effective_phrases":    []any{},
		"correlation_insights": []any{},
		"recommendations":      []any{},
		"funnel_suggestions":   []any{},
	}
}
