package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateOptions(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		opts := NewGenerateOptions()
		assert.Equal(t, 8192, opts.MaxTokens)
		assert.Equal(t, 0.5, opts.Temperature)
		assert.Empty(t, opts.Stop)
	})

	t.Run("ApplyOptions", func(t *testing.T) {
		opts := NewGenerateOptions()
		for _, opt := range []GenerateOption{
			WithMaxTokens(1024),
			WithTemperature(0.9),
			WithTopP(0.95),
			WithPresencePenalty(0.1),
			WithFrequencyPenalty(0.2),
			WithStopSequences("Observation:", "\n\n"),
		} {
			opt(opts)
		}

		assert.Equal(t, 1024, opts.MaxTokens)
		assert.Equal(t, 0.9, opts.Temperature)
		assert.Equal(t, 0.95, opts.TopP)
		assert.Equal(t, 0.1, opts.PresencePenalty)
		assert.Equal(t, 0.2, opts.FrequencyPenalty)
		assert.Equal(t, []string{"Observation:", "\n\n"}, opts.Stop)
	})
}

func TestBaseLLM(t *testing.T) {
	base := NewBaseLLM("anthropic", ModelAnthropicSonnet, []Capability{
		CapabilityCompletion,
		CapabilityChat,
		CapabilityJSON,
	})

	assert.Equal(t, "anthropic", base.ProviderName())
	assert.Equal(t, string(ModelAnthropicSonnet), base.ModelID())
	assert.Len(t, base.Capabilities(), 3)
	assert.True(t, base.HasCapability(CapabilityJSON))
	assert.False(t, base.HasCapability(CapabilityToolCalling))
}
