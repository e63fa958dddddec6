package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/XiaoConstantine/ace-go/pkg/core"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/XiaoConstantine/ace-go/pkg/tools"
	models "github.com/XiaoConstantine/mcp-go/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM replays canned responses in order, repeating the last one when
// the script runs out.
type scriptedLLM struct {
	*core.BaseLLM
	responses []string
	err       error
	usage     *core.TokenInfo
	prompts   []string
}

func newScriptedLLM(responses ...string) *scriptedLLM {
	return &scriptedLLM{
		BaseLLM:   core.NewBaseLLM("test", "scripted", []core.Capability{core.CapabilityCompletion}),
		responses: responses,
	}
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...core.GenerateOption) (*core.LLMResponse, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return nil, s.err
	}
	idx := len(s.prompts) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return &core.LLMResponse{Content: s.responses[idx], Usage: s.usage}, nil
}

func (s *scriptedLLM) GenerateWithJSON(ctx context.Context, prompt string, options ...core.GenerateOption) (map[string]interface{}, error) {
	return nil, errors.New(errors.Unknown, "scripted llm has no json mode")
}

func mathRegistry(t *testing.T) *tools.InMemoryToolRegistry {
	t.Helper()
	registry := tools.NewInMemoryToolRegistry()
	require.NoError(t, tools.RegisterMathToolset(registry))
	return registry
}

func TestReActEngineSolvesWithTool(t *testing.T) {
	llm := newScriptedLLM(
		"Thought: A linear solver fits here. [B1]\n"+
			`Action: <action><tool_name>solve_linear</tool_name><arguments><arg key="a">2</arg><arg key="b">3</arg><arg key="c">7</arg></arguments></action>`,
		"Thought: The tool says x = 2.\n"+
			`Action: <action><tool_name>finish</tool_name><arguments><arg key="answer">#### 2</arg></arguments></action>`,
	)
	engine := NewReActEngine(llm, mathRegistry(t))

	result, err := engine.Solve(context.Background(), "Solve 2x + 3 = 7", "## Strategy Playbook\n[B1] Prefer exact tools over mental math.\n", 5)
	require.NoError(t, err)

	assert.True(t, result.Completed)
	assert.Equal(t, "#### 2", result.Answer)
	assert.Equal(t, 1.0, result.Confidence)
	require.Len(t, result.Steps, 2)

	first := result.Steps[0]
	assert.Equal(t, "solve_linear", first.Tool)
	assert.Contains(t, first.Thought, "[B1]")
	assert.Contains(t, first.Observation, `"x": 2`)
	assert.Empty(t, first.Error)

	// The second prompt carries the playbook, the tool catalog, and the
	// first observation.
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[1], "Prefer exact tools over mental math.")
	assert.Contains(t, llm.prompts[1], "- solve_linear: Solve the linear equation")
	assert.Contains(t, llm.prompts[1], "- a: Coefficient of x (must be non-zero) (required)")
	assert.Contains(t, llm.prompts[1], "Iteration 1:")
	assert.Contains(t, llm.prompts[1], `"x": 2`)
}

func TestReActEngineRecoversFromUnknownTool(t *testing.T) {
	llm := newScriptedLLM(
		"Thought: Let me try something.\n"+
			`Action: <action><tool_name>magic</tool_name></action>`,
		"Thought: No such tool; I can answer directly.\n"+
			`Action: <action><tool_name>finish</tool_name><arguments><arg key="answer">4</arg></arguments></action>`,
	)
	engine := NewReActEngine(llm, mathRegistry(t))

	result, err := engine.Solve(context.Background(), "What is 2+2?", "", 5)
	require.NoError(t, err)

	assert.True(t, result.Completed)
	assert.Equal(t, "4", result.Answer)
	require.Len(t, result.Steps, 2)
	assert.NotEmpty(t, result.Steps[0].Error)
	assert.Contains(t, result.Steps[0].Observation, "unknown tool")
	assert.Contains(t, result.Steps[0].Observation, "solve_linear")
}

func TestReActEngineToolErrorBecomesObservation(t *testing.T) {
	llm := newScriptedLLM(
		"Thought: Solve the quadratic.\n"+
			`Action: <action><tool_name>solve_quadratic</tool_name><arguments><arg key="a">1</arg><arg key="b">0</arg><arg key="c">1</arg></arguments></action>`,
		"Thought: No real roots, so the answer is none.\n"+
			`Action: <action><tool_name>finish</tool_name><arguments><arg key="answer">no real solutions</arg></arguments></action>`,
	)
	engine := NewReActEngine(llm, mathRegistry(t))

	result, err := engine.Solve(context.Background(), "Solve x^2 + 1 = 0", "", 5)
	require.NoError(t, err)

	assert.True(t, result.Completed)
	require.Len(t, result.Steps, 2)
	assert.Contains(t, result.Steps[0].Observation, "ERROR:")
	assert.Contains(t, result.Steps[0].Observation, "discriminant is negative")
	// A domain error from the tool is an observation, not a step failure.
	assert.Empty(t, result.Steps[0].Error)
}

func TestReActEngineBudgetExhausted(t *testing.T) {
	llm := newScriptedLLM(
		"Thought: Keep calculating.\n" +
			`Action: <action><tool_name>check_inequality</tool_name><arguments><arg key="left">1</arg><arg key="op">&lt;</arg><arg key="right">2</arg></arguments></action>`,
	)
	engine := NewReActEngine(llm, mathRegistry(t))

	result, err := engine.Solve(context.Background(), "Is 1 < 2?", "", 3)
	require.NoError(t, err)

	assert.False(t, result.Completed)
	assert.Empty(t, result.Answer)
	assert.Zero(t, result.Confidence)
	assert.Len(t, result.Steps, 3)
}

func TestReActEngineTrajectoryFallback(t *testing.T) {
	llm := newScriptedLLM(
		"Thought: Check the comparison first.\n"+
			`Action: <action><tool_name>check_inequality</tool_name><arguments><arg key="left">1</arg><arg key="op">&lt;</arg><arg key="right">2</arg></arguments></action>`,
		"Yes, 1 < 2 holds.",
	)
	engine := NewReActEngine(llm, mathRegistry(t)).WithTrajectoryFallback(true)

	result, err := engine.Solve(context.Background(), "Is 1 < 2?", "", 1)
	require.NoError(t, err)

	assert.True(t, result.Completed)
	assert.Equal(t, "Yes, 1 < 2 holds.", result.Answer)
	assert.Equal(t, 0.5, result.Confidence)
	assert.Len(t, result.Steps, 1)
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[1], "ran out of reasoning steps")
}

func TestReActEngineModelFailure(t *testing.T) {
	llm := newScriptedLLM("unused")
	llm.err = errors.New(errors.Timeout, "model unreachable")
	engine := NewReActEngine(llm, mathRegistry(t))

	result, err := engine.Solve(context.Background(), "anything", "", 3)
	require.Error(t, err)
	assert.Equal(t, errors.LLMGenerationFailed, errors.CodeOf(err))
	require.NotNil(t, result)
	assert.Empty(t, result.Steps)
	assert.False(t, result.Completed)
}

func TestReActEngineInvalidActionNudges(t *testing.T) {
	llm := newScriptedLLM(
		"I think the answer is probably four but let me keep going.",
		"Thought: Time to commit.\n"+
			`Action: <action><tool_name>finish</tool_name><arguments><arg key="answer">4</arg></arguments></action>`,
	)
	engine := NewReActEngine(llm, mathRegistry(t))

	result, err := engine.Solve(context.Background(), "What is 2+2?", "", 5)
	require.NoError(t, err)

	assert.True(t, result.Completed)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "no valid action found", result.Steps[0].Error)
	assert.Contains(t, result.Steps[0].Observation, "not contain a valid action")
}

func TestReActEngineFinishVariants(t *testing.T) {
	cases := []struct {
		name     string
		response string
		answer   string
	}{
		{
			name:     "bare finish action with labeled answer",
			response: "Thought: Done.\nAction: finish\nFinal Answer: 42",
			answer:   "42",
		},
		{
			name:     "xml content finish",
			response: "Thought: Done.\nAction: <action>finish</action>\nFinal Answer: 42",
			answer:   "42",
		},
		{
			name:     "no action but labeled answer",
			response: "The total is easy to see here.\nFinal Answer: 42",
			answer:   "42",
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			llm := newScriptedLLM(tt.response)
			engine := NewReActEngine(llm, mathRegistry(t))

			result, err := engine.Solve(context.Background(), "q", "", 3)
			require.NoError(t, err)
			assert.True(t, result.Completed)
			assert.Equal(t, tt.answer, result.Answer)
		})
	}
}

func TestReActEngineTruncatesLongObservations(t *testing.T) {
	registry := tools.NewInMemoryToolRegistry()
	long := strings.Repeat("x", 500)
	echo := tools.NewFuncTool("echo", "Echo back a long payload",
		models.InputSchema{Type: "object", Properties: map[string]models.ParameterSchema{}},
		func(ctx context.Context, args map[string]interface{}) (*models.CallToolResult, error) {
			return tools.TextResult(long), nil
		})
	require.NoError(t, registry.Register(echo))

	llm := newScriptedLLM(
		"Thought: Echo it.\n" + `Action: <action><tool_name>echo</tool_name></action>`,
	)
	engine := NewReActEngine(llm, registry).WithMaxObservationLength(100)

	result, err := engine.Solve(context.Background(), "q", "", 1)
	require.NoError(t, err)

	require.Len(t, result.Steps, 1)
	obs := result.Steps[0].Observation
	assert.True(t, strings.HasSuffix(obs, "... (truncated)"))
	assert.Len(t, obs, 100+len("... (truncated)"))
}

func TestReActEngineAccumulatesUsage(t *testing.T) {
	llm := newScriptedLLM(
		"Thought: Compare.\n"+
			`Action: <action><tool_name>check_inequality</tool_name><arguments><arg key="left">1</arg><arg key="op">&lt;</arg><arg key="right">2</arg></arguments></action>`,
		"Thought: Done.\n"+
			`Action: <action><tool_name>finish</tool_name><arguments><arg key="answer">yes</arg></arguments></action>`,
	)
	llm.usage = &core.TokenInfo{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	engine := NewReActEngine(llm, mathRegistry(t))

	result, err := engine.Solve(context.Background(), "Is 1 < 2?", "", 5)
	require.NoError(t, err)

	require.NotNil(t, result.Usage)
	assert.Equal(t, 20, result.Usage.PromptTokens)
	assert.Equal(t, 10, result.Usage.CompletionTokens)
	assert.Equal(t, 30, result.Usage.TotalTokens)
}

func TestReActEngineCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := newScriptedLLM("unused")
	engine := NewReActEngine(llm, mathRegistry(t))

	result, err := engine.Solve(ctx, "q", "", 3)
	require.Error(t, err)
	assert.Equal(t, errors.Canceled, errors.CodeOf(err))
	assert.Empty(t, result.Steps)
	assert.Empty(t, llm.prompts)
}
