package tools

import (
	"context"
	"encoding/xml"

	models "github.com/XiaoConstantine/mcp-go/pkg/model"
)

// Tool defines a callable tool interface. It abstracts the concrete
// implementation behind a name, a description, and a schema so the reasoning
// engine can present and invoke tools uniformly.
type Tool interface {
	// Name returns the tool's identifier
	Name() string

	// Description returns human-readable explanation of the tool's purpose
	Description() string

	// InputSchema returns the expected parameter structure
	InputSchema() models.InputSchema

	// Call executes the tool with the provided arguments
	Call(ctx context.Context, args map[string]interface{}) (*models.CallToolResult, error)
}

type XMLArgument struct {
	XMLName xml.Name `xml:"arg"`
	Key     string   `xml:"key,attr"`
	Value   string   `xml:",chardata"` // Store raw value as string for now
}

// XMLAction is the wire format the reasoning engine asks the model to emit
// when it wants to invoke a tool. A bare Content with no ToolName covers the
// terminal "finish" form.
type XMLAction struct {
	XMLName   xml.Name      `xml:"action"`
	ToolName  string        `xml:"tool_name,omitempty"`
	Arguments []XMLArgument `xml:"arguments>arg,omitempty"`

	Content string `xml:",chardata"`
}

// GetArgumentsMap converts XML arguments to the map form tools accept.
// Note: values stay strings. Tools that need numbers coerce them; the model
// has no way to signal types through the XML form.
func (xa *XMLAction) GetArgumentsMap() map[string]interface{} {
	argsMap := make(map[string]interface{})
	if xa == nil {
		return argsMap
	}
	// A finish action or other simple action may have no arguments
	if len(xa.Arguments) == 0 {
		return argsMap
	}
	for _, arg := range xa.Arguments {
		argsMap[arg.Key] = arg.Value
	}
	return argsMap
}
