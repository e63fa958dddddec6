package llms

import (
	"testing"

	"github.com/XiaoConstantine/ace-go/pkg/core"
	errs "github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnthropicLLM(t *testing.T) {
	llm, err := NewAnthropicLLM("test-key", anthropic.ModelClaudeSonnet4_5_20250929)
	require.NoError(t, err)
	require.NotNil(t, llm)

	assert.Equal(t, "anthropic", llm.ProviderName())
	assert.Equal(t, string(core.ModelAnthropicSonnet), llm.ModelID())
	assert.True(t, llm.HasCapability(core.CapabilityCompletion))
	assert.True(t, llm.HasCapability(core.CapabilityChat))
	assert.True(t, llm.HasCapability(core.CapabilityJSON))
	assert.False(t, llm.HasCapability(core.CapabilityToolCalling))
}

func TestNewAnthropicLLMRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	llm, err := NewAnthropicLLM("", anthropic.ModelClaudeSonnet4_5_20250929)
	require.Error(t, err)
	assert.Nil(t, llm)
	assert.Equal(t, errs.InvalidInput, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNewAnthropicLLMReadsKeyFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	llm, err := NewAnthropicLLM("", anthropic.ModelClaudeSonnet4_5_20250929)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", llm.ProviderName())
}

func TestNewAnthropicLLMRejectsUnknownModel(t *testing.T) {
	llm, err := NewAnthropicLLM("test-key", anthropic.Model("gpt-4"))
	require.Error(t, err)
	assert.Nil(t, llm)
	assert.Equal(t, errs.InvalidInput, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "unsupported Anthropic model")
}

func TestNormalizeModelName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected anthropic.Model
	}{
		{
			name:     "legacy opus date alias",
			input:    "claude-3-opus-20240229",
			expected: anthropic.ModelClaudeOpus4_1_20250805,
		},
		{
			name:     "legacy sonnet short alias",
			input:    "claude-3-sonnet",
			expected: anthropic.ModelClaudeSonnet4_5_20250929,
		},
		{
			name:     "legacy haiku alias",
			input:    "claude-3-haiku",
			expected: anthropic.ModelClaude_3_Haiku_20240307,
		},
		{
			name:     "current model passes through",
			input:    string(anthropic.ModelClaudeSonnet4_5_20250929),
			expected: anthropic.ModelClaudeSonnet4_5_20250929,
		},
		{
			name:     "unknown model passes through",
			input:    "claude-sonnet-9",
			expected: anthropic.Model("claude-sonnet-9"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeModelName(tt.input))
		})
	}
}

func TestIsValidAnthropicModel(t *testing.T) {
	valid := []string{
		"claude-3-haiku-20240307",
		"claude-4-experimental",
		"claude-haiku-4-5",
		"claude-sonnet-4-5-20250929",
		"claude-opus-4-1-20250805",
	}
	for _, model := range valid {
		assert.True(t, isValidAnthropicModel(model), "expected %q to be valid", model)
	}

	invalid := []string{"gpt-4", "gemini-pro", "llama-3", ""}
	for _, model := range invalid {
		assert.False(t, isValidAnthropicModel(model), "expected %q to be invalid", model)
	}
}
