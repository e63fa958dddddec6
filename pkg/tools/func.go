package tools

import (
	"context"

	"github.com/XiaoConstantine/ace-go/pkg/core"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
	models "github.com/XiaoConstantine/mcp-go/pkg/model"
)

// ToolFunc represents a function that can be called as a tool.
type ToolFunc func(ctx context.Context, args map[string]interface{}) (*models.CallToolResult, error)

// FuncTool wraps a Go function as a Tool implementation.
type FuncTool struct {
	name        string
	description string
	schema      models.InputSchema
	fn          ToolFunc
	metadata    *core.ToolMetadata
	matchCutoff float64
}

// NewFuncTool creates a new function-based tool. Capability keywords are
// derived from the description so the registry can match intents without
// invoking the tool.
func NewFuncTool(name, description string, schema models.InputSchema, fn ToolFunc) *FuncTool {
	metadata := &core.ToolMetadata{
		Name:         name,
		Description:  description,
		InputSchema:  schema,
		Capabilities: extractCapabilities(description),
		Version:      "1.0.0",
	}

	return &FuncTool{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
		metadata:    metadata,
		matchCutoff: defaultMatchCutoff,
	}
}

// Name returns the tool's identifier.
func (t *FuncTool) Name() string {
	return t.name
}

// Description returns human-readable explanation of the tool.
func (t *FuncTool) Description() string {
	return t.description
}

// InputSchema returns the expected parameter structure.
func (t *FuncTool) InputSchema() models.InputSchema {
	return t.schema
}

// Metadata returns the tool's metadata for intent matching.
func (t *FuncTool) Metadata() *core.ToolMetadata {
	return t.metadata
}

// CanHandle checks if the tool can handle a specific action/intent.
func (t *FuncTool) CanHandle(ctx context.Context, intent string) bool {
	return calculateToolMatchScore(t.metadata, intent) >= t.matchCutoff
}

// Call executes the wrapped function with the provided arguments.
func (t *FuncTool) Call(ctx context.Context, args map[string]interface{}) (*models.CallToolResult, error) {
	return t.fn(ctx, args)
}

// Execute runs the tool with provided parameters and adapts the result to the
// core interface. Tool-level failures (IsError results) are not Go errors;
// they come back as data so the caller can feed them to the model as
// observations.
func (t *FuncTool) Execute(ctx context.Context, params map[string]interface{}) (core.ToolResult, error) {
	result, err := t.Call(ctx, params)
	if err != nil {
		return core.ToolResult{}, err
	}

	return core.ToolResult{
		Data:        extractContentText(result.Content),
		Metadata:    map[string]interface{}{"isError": result.IsError},
		Annotations: map[string]interface{}{},
	}, nil
}

// Validate checks if the parameters match the expected schema.
func (t *FuncTool) Validate(params map[string]interface{}) error {
	for name, param := range t.schema.Properties {
		if param.Required {
			if _, exists := params[name]; !exists {
				return errors.WithFields(errors.New(errors.InvalidInput, "missing required parameter"), errors.Fields{
					"tool_name": t.name,
					"parameter": name,
				})
			}
		}
	}

	return nil
}

var _ core.Tool = (*FuncTool)(nil)
var _ Tool = (*FuncTool)(nil)
