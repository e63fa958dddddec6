// Package engine provides the reasoning side of the pipeline: a ReAct-style
// loop that alternates model thoughts with tool calls until the model
// finishes or the step budget runs out.
package engine

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/XiaoConstantine/ace-go/pkg/ace"
	"github.com/XiaoConstantine/ace-go/pkg/core"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/XiaoConstantine/ace-go/pkg/logging"
	"github.com/XiaoConstantine/ace-go/pkg/tools"
)

const defaultMaxObservationLength = 2000

// ReActEngine answers queries by looping: ask the model for a thought and an
// action, execute the action against the tool registry, feed the observation
// back, repeat. The model signals completion with a finish action carrying
// the final answer.
//
// Tool failures are not fatal: they come back to the model as error
// observations so it can correct course within the remaining budget.
type ReActEngine struct {
	llm      core.LLM
	registry core.ToolRegistry

	genOpts              []core.GenerateOption
	maxObservationLength int
	trajectoryFallback   bool
}

// NewReActEngine creates an engine over the given model and tool registry.
func NewReActEngine(llm core.LLM, registry core.ToolRegistry) *ReActEngine {
	return &ReActEngine{
		llm:                  llm,
		registry:             registry,
		maxObservationLength: defaultMaxObservationLength,
	}
}

// WithGenerateOptions sets the options passed on every model call, such as
// token limits and temperature.
func (e *ReActEngine) WithGenerateOptions(opts ...core.GenerateOption) *ReActEngine {
	e.genOpts = opts
	return e
}

// WithMaxObservationLength caps how many characters of a tool observation are
// fed back to the model.
func (e *ReActEngine) WithMaxObservationLength(n int) *ReActEngine {
	if n > 0 {
		e.maxObservationLength = n
	}
	return e
}

// WithTrajectoryFallback controls whether a run that exhausts its budget gets
// one extra model call to extract a best-effort answer from the trajectory.
// Off by default: an exhausted budget then surfaces as an incomplete result.
func (e *ReActEngine) WithTrajectoryFallback(enabled bool) *ReActEngine {
	e.trajectoryFallback = enabled
	return e
}

// Solve runs the act/observe loop for one query. The playbook string is
// injected into every prompt verbatim. The returned result is partial when
// the budget ran out; Completed reports whether a final answer was reached.
// Confidence is 1 for an explicit finish and 0.5 for an answer recovered by
// the trajectory fallback.
func (e *ReActEngine) Solve(ctx context.Context, query, playbook string, budget int) (*ace.EngineResult, error) {
	if budget <= 0 {
		budget = ace.DefaultStepBudget
	}

	result := &ace.EngineResult{}
	toolDesc := e.describeTools()
	logger := logging.GetLogger()

	var conversation strings.Builder
	for i := 0; i < budget; i++ {
		if err := errors.CheckContext(ctx, "react solve"); err != nil {
			return result, err
		}

		prompt := e.buildPrompt(query, playbook, toolDesc, conversation.String())
		resp, err := e.llm.Generate(ctx, prompt, e.genOpts...)
		if err != nil {
			return result, errors.Wrap(err, errors.LLMGenerationFailed, "react step failed")
		}
		accumulateUsage(result, resp.Usage)

		thought, actionText := splitThoughtAndAction(resp.Content)
		action := parseAction(actionText)

		step := ace.TraceStep{
			Index:     i,
			Thought:   thought,
			Action:    actionText,
			Timestamp: time.Now(),
		}

		if done, answer := finishAnswer(action, actionText, resp.Content); done {
			if answer == "" {
				answer = thought
			}
			result.Steps = append(result.Steps, step)
			result.Answer = strings.TrimSpace(answer)
			result.Confidence = 1
			result.Completed = true
			logger.Debug(ctx, "react finished after %d step(s)", i+1)
			return result, nil
		}

		if action == nil || strings.TrimSpace(action.ToolName) == "" {
			step.Error = "no valid action found"
			step.Observation = "Your reply did not contain a valid action block. " +
				"Use the XML format from the instructions, or finish with the final answer."
		} else {
			step.Tool = action.ToolName
			step.Observation = e.executeTool(ctx, action, &step)
		}
		result.Steps = append(result.Steps, step)

		fmt.Fprintf(&conversation, "Iteration %d:\nThought: %s\nAction: %s\nObservation: %s\n",
			i+1, thought, actionText, step.Observation)
	}

	if e.trajectoryFallback {
		answer, err := e.extractFromTrajectory(ctx, query, conversation.String(), result)
		if err != nil {
			logger.Warn(ctx, "trajectory fallback failed: %v", err)
		} else if answer != "" {
			result.Answer = answer
			result.Confidence = 0.5
			result.Completed = true
			return result, nil
		}
	}

	return result, nil
}

// executeTool dispatches one action against the registry. Failures are
// recorded on the step and rendered as error observations for the model.
func (e *ReActEngine) executeTool(ctx context.Context, action *tools.XMLAction, step *ace.TraceStep) string {
	tool, err := e.registry.Get(action.ToolName)
	if err != nil {
		step.Error = err.Error()
		return fmt.Sprintf("ERROR: unknown tool %q. Available tools: %s",
			action.ToolName, strings.Join(e.toolNames(), ", "))
	}

	args := action.GetArgumentsMap()
	if err := tool.Validate(args); err != nil {
		step.Error = err.Error()
		return fmt.Sprintf("ERROR: invalid arguments for %q: %v", action.ToolName, err)
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		step.Error = err.Error()
		return fmt.Sprintf("ERROR: tool %q failed: %v", action.ToolName, err)
	}

	return e.formatObservation(result)
}

func (e *ReActEngine) formatObservation(result core.ToolResult) string {
	var text string
	switch data := result.Data.(type) {
	case string:
		text = data
	case []byte:
		text = string(data)
	default:
		pretty, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			text = fmt.Sprintf("%v", data)
		} else {
			text = string(pretty)
		}
	}

	if isErr, ok := result.Metadata["isError"].(bool); ok && isErr {
		text = "ERROR: " + text
	}

	if len(text) > e.maxObservationLength {
		text = text[:e.maxObservationLength] + "... (truncated)"
	}
	return text
}

// extractFromTrajectory asks the model for a best-effort answer once the
// budget is gone, using whatever work accumulated.
func (e *ReActEngine) extractFromTrajectory(ctx context.Context, query, conversation string, result *ace.EngineResult) (string, error) {
	prompt := fmt.Sprintf(`You ran out of reasoning steps while solving a problem.

## Problem
%s

## Work so far
%s
Based only on the work above, give your best final answer. Reply with the answer and nothing else.`, query, conversation)

	resp, err := e.llm.Generate(ctx, prompt, e.genOpts...)
	if err != nil {
		return "", errors.Wrap(err, errors.LLMGenerationFailed, "trajectory extraction failed")
	}
	accumulateUsage(result, resp.Usage)
	return strings.TrimSpace(resp.Content), nil
}

func (e *ReActEngine) buildPrompt(query, playbook, toolDesc, conversation string) string {
	var sb strings.Builder
	sb.WriteString("Solve the problem step by step. You may call tools to compute intermediate results.\n\n")
	sb.WriteString("## Problem\n")
	sb.WriteString(query)
	sb.WriteString("\n\n")
	if playbook != "" {
		sb.WriteString(playbook)
		sb.WriteString("\n")
	}
	sb.WriteString("## Tools\n")
	sb.WriteString(toolDesc)
	sb.WriteString("\n## Format\n")
	sb.WriteString("Reply with exactly one thought and one action:\n")
	sb.WriteString("Thought: your reasoning about the next step. Cite a playbook bullet like [B12] when you apply it.\n")
	sb.WriteString(`Action: <action><tool_name>NAME</tool_name><arguments><arg key="param">value</arg></arguments></action>` + "\n\n")
	sb.WriteString("When you know the final answer:\n")
	sb.WriteString(`Action: <action><tool_name>finish</tool_name><arguments><arg key="answer">the answer</arg></arguments></action>` + "\n")
	if conversation != "" {
		sb.WriteString("\n## Previous steps\n")
		sb.WriteString(conversation)
	}
	sb.WriteString("\nThought:")
	return sb.String()
}

func (e *ReActEngine) describeTools() string {
	list := e.registry.List()
	sort.Slice(list, func(i, j int) bool {
		return list[i].Metadata().Name < list[j].Metadata().Name
	})

	var sb strings.Builder
	for _, tool := range list {
		meta := tool.Metadata()
		fmt.Fprintf(&sb, "- %s: %s\n", meta.Name, meta.Description)
		if len(meta.InputSchema.Properties) == 0 {
			continue
		}
		sb.WriteString("  Parameters:\n")
		params := make([]string, 0, len(meta.InputSchema.Properties))
		for name := range meta.InputSchema.Properties {
			params = append(params, name)
		}
		sort.Strings(params)
		for _, name := range params {
			p := meta.InputSchema.Properties[name]
			required := ""
			if p.Required {
				required = " (required)"
			}
			fmt.Fprintf(&sb, "    - %s: %s%s\n", name, p.Description, required)
		}
	}
	return sb.String()
}

func (e *ReActEngine) toolNames() []string {
	list := e.registry.List()
	names := make([]string, 0, len(list))
	for _, tool := range list {
		names = append(names, tool.Metadata().Name)
	}
	sort.Strings(names)
	return names
}

func accumulateUsage(result *ace.EngineResult, usage *core.TokenInfo) {
	if usage == nil {
		return
	}
	if result.Usage == nil {
		result.Usage = &core.TokenInfo{}
	}
	result.Usage.PromptTokens += usage.PromptTokens
	result.Usage.CompletionTokens += usage.CompletionTokens
	result.Usage.TotalTokens += usage.TotalTokens
}

var actionLabelRegex = regexp.MustCompile(`(?mi)^\s*action:\s*`)
var finalAnswerRegex = regexp.MustCompile(`(?i)final answer:\s*`)

// splitThoughtAndAction separates the model's reasoning from its action. The
// first XML action block wins; models sometimes hallucinate extra cycles in
// one reply and everything past the first block is dropped.
func splitThoughtAndAction(content string) (string, string) {
	if block := extractFirstActionBlock(content); block != "" {
		idx := strings.Index(content, block)
		return cleanThought(content[:idx]), block
	}

	if loc := actionLabelRegex.FindStringIndex(content); loc != nil {
		thought := cleanThought(content[:loc[0]])
		// No XML block anywhere, so the action is just the rest of the
		// labeled line.
		rest := content[loc[1]:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}
		return thought, strings.TrimSpace(rest)
	}

	return cleanThought(content), ""
}

func extractFirstActionBlock(text string) string {
	start := strings.Index(text, "<action>")
	if start == -1 {
		return ""
	}
	end := strings.Index(text[start:], "</action>")
	if end == -1 {
		return ""
	}
	return text[start : start+end+len("</action>")]
}

func cleanThought(text string) string {
	// Drop an empty trailing "Action:" label left behind when the XML block
	// was cut out.
	if loc := actionLabelRegex.FindStringIndex(text); loc != nil && strings.TrimSpace(text[loc[1]:]) == "" {
		text = text[:loc[0]]
	}
	text = strings.TrimSpace(text)
	if len(text) >= len("thought:") && strings.EqualFold(text[:len("thought:")], "thought:") {
		text = strings.TrimSpace(text[len("thought:"):])
	}
	return text
}

func parseAction(actionText string) *tools.XMLAction {
	block := extractFirstActionBlock(actionText)
	if block == "" {
		return nil
	}
	var action tools.XMLAction
	if err := xml.Unmarshal([]byte(block), &action); err != nil {
		return nil
	}
	return &action
}

// finishAnswer decides whether the model is done and extracts its answer.
// The canonical form is a finish action with an answer argument; a bare
// "finish" action or a "Final Answer:" line are accepted too.
func finishAnswer(action *tools.XMLAction, actionText, fullContent string) (bool, string) {
	if action != nil {
		name := strings.TrimSpace(action.ToolName)
		content := strings.TrimSpace(action.Content)
		if strings.EqualFold(name, "finish") || (name == "" && strings.EqualFold(content, "finish")) {
			if answer, ok := action.GetArgumentsMap()["answer"].(string); ok && strings.TrimSpace(answer) != "" {
				return true, strings.TrimSpace(answer)
			}
			return true, labeledAnswer(fullContent)
		}
		return false, ""
	}

	if strings.EqualFold(strings.TrimSpace(actionText), "finish") {
		return true, labeledAnswer(fullContent)
	}
	if actionText == "" {
		if answer := labeledAnswer(fullContent); answer != "" {
			return true, answer
		}
	}
	return false, ""
}

func labeledAnswer(text string) string {
	loc := finalAnswerRegex.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	return strings.TrimSpace(text[loc[1]:])
}

var _ ace.ReasoningEngine = (*ReActEngine)(nil)
