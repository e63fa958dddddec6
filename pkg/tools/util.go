package tools

import (
	"strings"

	"github.com/XiaoConstantine/ace-go/pkg/core"
	models "github.com/XiaoConstantine/mcp-go/pkg/model"
)

// Minimum match score before a tool is considered a candidate for an intent.
const defaultMatchCutoff = 0.3

// TextResult builds a successful tool result carrying a single text block.
func TextResult(text string) *models.CallToolResult {
	return &models.CallToolResult{
		Content: []models.Content{
			models.TextContent{Type: "text", Text: text},
		},
		IsError: false,
	}
}

// ErrorResult builds a failed tool result carrying a single text block.
// The text is surfaced to the model as an observation, so it should say what
// went wrong in plain language.
func ErrorResult(text string) *models.CallToolResult {
	return &models.CallToolResult{
		Content: []models.Content{
			models.TextContent{Type: "text", Text: text},
		},
		IsError: true,
	}
}

// Helper to extract text content from an MCP Content array.
func extractContentText(content []models.Content) string {
	var result strings.Builder

	for _, item := range content {
		if textContent, ok := item.(models.TextContent); ok {
			if result.Len() > 0 {
				result.WriteString("\n")
			}
			result.WriteString(textContent.Text)
		}
	}

	return result.String()
}

// Helper to extract capability keywords from a description.
func extractCapabilities(description string) []string {
	capabilities := []string{}

	keywords := []string{"solve", "calculate", "compute", "convert",
		"statistics", "check", "equation", "evaluate",
		"search", "query", "fetch", "retrieve", "find"}

	descLower := strings.ToLower(description)
	for _, keyword := range keywords {
		if strings.Contains(descLower, keyword) {
			capabilities = append(capabilities, keyword)
		}
	}

	return capabilities
}

// calculateToolMatchScore determines how well a tool matches an action.
func calculateToolMatchScore(metadata *core.ToolMetadata, action string) float64 {
	if metadata == nil {
		return 0
	}

	score := 0.1
	actionLower := strings.ToLower(action)

	// Check if action mentions tool name
	if strings.Contains(actionLower, strings.ToLower(metadata.Name)) {
		score += 0.5
	}

	// Check capabilities
	for _, capability := range metadata.Capabilities {
		if strings.Contains(actionLower, strings.ToLower(capability)) {
			score += 0.3
		}
	}

	return score
}
