package ace

import (
	"context"
	"testing"

	"github.com/XiaoConstantine/ace-go/pkg/core"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFinalNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{"marked answer", "The total is 18.\n#### 18", 18, true},
		{"marked answer wins over later numbers", "#### 42 is final, ignore 7", 42, true},
		{"marked with commas", "#### 1,234,567", 1234567, true},
		{"marked with dollar sign", "#### $72.50", 72.50, true},
		{"marked negative", "#### -5", -5, true},
		{"last number fallback", "First 3 eggs, then 4 more, so 7 eggs.", 7, true},
		{"decimal fallback", "The average is 2.5 per day", 2.5, true},
		{"comma grouping fallback", "That comes to 12,000 total", 12000, true},
		{"no numbers", "no idea at all", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractFinalNumber(tt.input)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestNumericOracleEvaluate(t *testing.T) {
	o := NewNumericOracle()
	ctx := context.Background()

	t.Run("correct", func(t *testing.T) {
		eval, err := o.Evaluate(ctx, "q", "The answer is 18.", "#### 18")
		require.NoError(t, err)
		assert.True(t, eval.Correct)
		assert.Equal(t, 1.0, eval.Score)
		assert.Equal(t, "18", eval.Expected)
		assert.Equal(t, "18", eval.Actual)
		assert.Empty(t, eval.Detail)
	})

	t.Run("incorrect", func(t *testing.T) {
		eval, err := o.Evaluate(ctx, "q", "I get 17.", "#### 18")
		require.NoError(t, err)
		assert.False(t, eval.Correct)
		assert.Equal(t, 0.0, eval.Score)
		assert.Contains(t, eval.Detail, "expected 18")
		assert.Contains(t, eval.Detail, "got 17")
	})

	t.Run("answer without a number", func(t *testing.T) {
		eval, err := o.Evaluate(ctx, "q", "I could not solve this.", "#### 18")
		require.NoError(t, err)
		assert.False(t, eval.Correct)
		assert.Equal(t, "answer contains no number", eval.Detail)
	})

	t.Run("expected without a number", func(t *testing.T) {
		eval, err := o.Evaluate(ctx, "q", "42", "unparseable")
		require.Error(t, err)
		assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
		assert.Nil(t, eval)
	})

	t.Run("formatting differences do not matter", func(t *testing.T) {
		eval, err := o.Evaluate(ctx, "q", "That comes to $1,200 in total", "#### 1200")
		require.NoError(t, err)
		assert.True(t, eval.Correct)
	})
}

// fakeJSONLLM serves a canned GenerateWithJSON response.
type fakeJSONLLM struct {
	*core.BaseLLM
	response  map[string]interface{}
	err       error
	gotPrompt string
}

func newFakeJSONLLM(response map[string]interface{}, err error) *fakeJSONLLM {
	return &fakeJSONLLM{
		BaseLLM:  core.NewBaseLLM("fake", "fake-model", []core.Capability{core.CapabilityJSON}),
		response: response,
		err:      err,
	}
}

func (f *fakeJSONLLM) Generate(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	return &core.LLMResponse{Content: "ok"}, nil
}

func (f *fakeJSONLLM) GenerateWithJSON(ctx context.Context, prompt string, opts ...core.GenerateOption) (map[string]interface{}, error) {
	f.gotPrompt = prompt
	return f.response, f.err
}

func TestLLMLessonOracleExtractLessons(t *testing.T) {
	llm := newFakeJSONLLM(map[string]interface{}{
		"lessons": []interface{}{
			map[string]interface{}{
				"content": "Convert units before adding quantities.",
				"tags":    []interface{}{"units", "conversion"},
			},
			map[string]interface{}{"content": "   "},
			"not an object",
		},
	}, nil)
	o := NewLLMLessonOracle(llm)

	trace := &Trace{
		Query:  "How far in km?",
		Answer: "12 km",
		Steps:  []TraceStep{{Index: 0, Thought: "convert miles to km", Error: "bad conversion"}},
	}
	lessons, err := o.ExtractLessons(context.Background(), trace, &Evaluation{Correct: false, Expected: "19"})
	require.NoError(t, err)

	require.Len(t, lessons, 1)
	assert.Equal(t, "Convert units before adding quantities.", lessons[0].Content)
	assert.Equal(t, []string{"units", "conversion"}, lessons[0].Tags)

	// The failure prompt names the mistake and the correct answer.
	assert.Contains(t, llm.gotPrompt, "wrong answer")
	assert.Contains(t, llm.gotPrompt, "Correct answer: 19")
	assert.Contains(t, llm.gotPrompt, "(error: bad conversion)")
	assert.Contains(t, llm.gotPrompt, `"lessons"`)
}

func TestLLMLessonOracleSuccessPrompt(t *testing.T) {
	llm := newFakeJSONLLM(map[string]interface{}{"lessons": []interface{}{}}, nil)
	o := NewLLMLessonOracle(llm).WithMaxLessons(1)

	trace := &Trace{Query: "q", Answer: "18"}
	_, err := o.ExtractLessons(context.Background(), trace, &Evaluation{Correct: true})
	require.NoError(t, err)

	assert.Contains(t, llm.gotPrompt, "answered it correctly")
	assert.Contains(t, llm.gotPrompt, "at most 1 short, reusable strategies")
	assert.NotContains(t, llm.gotPrompt, "Correct answer:")
}

func TestLLMLessonOracleGenerationError(t *testing.T) {
	llm := newFakeJSONLLM(nil, errors.New(errors.LLMGenerationFailed, "model unavailable"))
	o := NewLLMLessonOracle(llm)

	lessons, err := o.ExtractLessons(context.Background(), &Trace{}, &Evaluation{})
	assert.Error(t, err)
	assert.Nil(t, lessons)
}

func TestParseLessonsMalformedInput(t *testing.T) {
	assert.Nil(t, parseLessons(map[string]interface{}{}))
	assert.Nil(t, parseLessons(map[string]interface{}{"lessons": "not a list"}))

	lessons := parseLessons(map[string]interface{}{
		"lessons": []interface{}{
			map[string]interface{}{"content": "Keep track of units.", "tags": []interface{}{"units", 7}},
		},
	})
	require.Len(t, lessons, 1)
	assert.Equal(t, []string{"units"}, lessons[0].Tags)
}
