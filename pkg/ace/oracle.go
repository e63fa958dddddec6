package ace

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/XiaoConstantine/ace-go/pkg/core"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
)

// numericTolerance is the relative tolerance for numeric answer matching.
const numericTolerance = 1e-6

// NumericOracle grades answers by comparing their final numeric value
// against the expected one. It understands the "#### 42" convention used
// by math word-problem datasets and otherwise takes the last number in
// the text.
type NumericOracle struct{}

// NewNumericOracle returns a deterministic numeric grader.
func NewNumericOracle() *NumericOracle {
	return &NumericOracle{}
}

// Evaluate implements EvaluationOracle.
func (o *NumericOracle) Evaluate(ctx context.Context, query, answer, expected string) (*Evaluation, error) {
	want, ok := ExtractFinalNumber(expected)
	if !ok {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "expected answer contains no number"),
			errors.Fields{"expected": expected},
		)
	}

	eval := &Evaluation{Expected: formatNumber(want)}

	got, ok := ExtractFinalNumber(answer)
	if !ok {
		eval.Detail = "answer contains no number"
		return eval, nil
	}

	eval.Actual = formatNumber(got)
	eval.Correct = numbersEqual(got, want)
	if eval.Correct {
		eval.Score = 1
	} else {
		eval.Detail = fmt.Sprintf("expected %s, got %s", eval.Expected, eval.Actual)
	}
	return eval, nil
}

var (
	markedAnswerRegex = regexp.MustCompile(`####\s*(-?\$?[\d,]+(?:\.\d+)?)`)
	numberRegex       = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)
)

// ExtractFinalNumber pulls the answer value out of free-form text. A
// "#### n" marker wins; otherwise the last number in the text is taken.
func ExtractFinalNumber(s string) (float64, bool) {
	if m := markedAnswerRegex.FindStringSubmatch(s); m != nil {
		return parseNumber(m[1])
	}

	matches := numberRegex.FindAllString(s, -1)
	if len(matches) == 0 {
		return 0, false
	}
	return parseNumber(matches[len(matches)-1])
}

func parseNumber(s string) (float64, bool) {
	s = strings.NewReplacer(",", "", "$", "").Replace(strings.TrimSpace(s))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func numbersEqual(a, b float64) bool {
	return math.Abs(a-b) <= numericTolerance*math.Max(1, math.Abs(b))
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// LLMLessonOracle asks a language model to distill short reusable
// strategies out of a finished trace. The prompt differs for correct and
// incorrect outcomes: failures focus on what would have avoided the
// mistake, successes on what made the approach work.
type LLMLessonOracle struct {
	llm        core.LLM
	maxLessons int
}

// NewLLMLessonOracle creates a lesson oracle backed by the given model.
func NewLLMLessonOracle(llm core.LLM) *LLMLessonOracle {
	return &LLMLessonOracle{llm: llm, maxLessons: DefaultMaxLessons}
}

// WithMaxLessons sets how many lessons the prompt asks for.
func (o *LLMLessonOracle) WithMaxLessons(n int) *LLMLessonOracle {
	if n > 0 {
		o.maxLessons = n
	}
	return o
}

// ExtractLessons implements LessonOracle.
func (o *LLMLessonOracle) ExtractLessons(ctx context.Context, trace *Trace, eval *Evaluation) ([]Lesson, error) {
	prompt := o.buildPrompt(trace, eval)

	raw, err := o.llm.GenerateWithJSON(ctx, prompt, core.WithTemperature(0.2))
	if err != nil {
		return nil, err
	}

	return parseLessons(raw), nil
}

func (o *LLMLessonOracle) buildPrompt(trace *Trace, eval *Evaluation) string {
	var sb strings.Builder

	if eval.Correct {
		sb.WriteString("You attempted the following problem and answered it correctly.\n\n")
	} else {
		sb.WriteString("You attempted the following problem and produced the wrong answer.\n\n")
	}

	sb.WriteString("Problem: " + trace.Query + "\n")
	sb.WriteString("Your answer: " + trace.Answer + "\n")
	if !eval.Correct && eval.Expected != "" {
		sb.WriteString("Correct answer: " + eval.Expected + "\n")
	}

	if len(trace.Steps) > 0 {
		sb.WriteString("\nReasoning steps:\n")
		for _, step := range trace.Steps {
			if step.Thought != "" {
				sb.WriteString(fmt.Sprintf("%d. %s\n", step.Index+1, step.Thought))
			}
			if step.Error != "" {
				sb.WriteString(fmt.Sprintf("   (error: %s)\n", step.Error))
			}
		}
	}

	if eval.Correct {
		sb.WriteString(fmt.Sprintf("\nExtract at most %d short, reusable strategies that made this approach work.", o.maxLessons))
	} else {
		sb.WriteString(fmt.Sprintf("\nIdentify what went wrong, then extract at most %d short, reusable strategies that would have avoided the mistake.", o.maxLessons))
	}
	sb.WriteString(" Each strategy must be one imperative sentence, general enough to apply to similar problems, with 1-3 lowercase topic tags.\n")
	sb.WriteString("\nRespond with JSON only: {\"lessons\": [{\"content\": \"...\", \"tags\": [\"...\"]}]}\n")

	return sb.String()
}

// parseLessons reads the model's JSON response. Malformed entries are
// dropped rather than failing the whole extraction.
func parseLessons(raw map[string]interface{}) []Lesson {
	items, ok := raw["lessons"].([]interface{})
	if !ok {
		return nil
	}

	var lessons []Lesson
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		content, ok := entry["content"].(string)
		if !ok || strings.TrimSpace(content) == "" {
			continue
		}

		lesson := Lesson{Content: strings.TrimSpace(content)}
		if rawTags, ok := entry["tags"].([]interface{}); ok {
			for _, rt := range rawTags {
				if tag, ok := rt.(string); ok && tag != "" {
					lesson.Tags = append(lesson.Tags, tag)
				}
			}
		}
		lessons = append(lessons, lesson)
	}
	return lessons
}
