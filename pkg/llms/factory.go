package llms

import (
	"strings"

	"github.com/XiaoConstantine/ace-go/pkg/core"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/anthropics/anthropic-sdk-go"
)

// NewLLM creates a new LLM instance based on the provided model ID.
func NewLLM(apiKey string, modelID core.ModelID) (core.LLM, error) {
	switch {
	case modelID == core.ModelAnthropicHaiku || modelID == core.ModelAnthropicSonnet || modelID == core.ModelAnthropicOpus:
		return NewAnthropicLLM(apiKey, anthropic.Model(modelID))
	case strings.HasPrefix(string(modelID), "claude-"):
		return NewAnthropicLLM(apiKey, anthropic.Model(modelID))
	default:
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "unsupported model ID"),
			errors.Fields{"model": string(modelID)})
	}
}
