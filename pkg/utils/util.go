package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSONResponse attempts to parse a string response as a JSON object.
// Models routinely wrap JSON in markdown code fences; those are stripped
// before parsing.
func ParseJSONResponse(response string) (map[string]interface{}, error) {
	cleaned := StripCodeFences(response)

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("failed to parse response as JSON: %w", err)
	}
	return result, nil
}

// StripCodeFences removes a surrounding markdown code fence, with or without
// a language tag. Text without a fence passes through unchanged.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop a language tag like "json" on the opening fence line
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(trimmed[:nl])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{[\"") {
			trimmed = trimmed[nl+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
