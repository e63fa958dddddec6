package tools

import (
	"sync"

	"github.com/XiaoConstantine/ace-go/pkg/core"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
)

// InMemoryToolRegistry provides a basic in-memory implementation of the
// ToolRegistry interface. It is safe for concurrent use.
type InMemoryToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]core.Tool
}

// NewInMemoryToolRegistry creates a new, empty InMemoryToolRegistry.
func NewInMemoryToolRegistry() *InMemoryToolRegistry {
	return &InMemoryToolRegistry{
		tools: make(map[string]core.Tool),
	}
}

// Register adds a tool, rejecting unnamed tools and duplicate names.
func (r *InMemoryToolRegistry) Register(tool core.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tool == nil {
		return errors.New(errors.InvalidInput, "cannot register a nil tool")
	}

	meta := tool.Metadata()
	if meta == nil || meta.Name == "" {
		return errors.New(errors.InvalidInput, "cannot register a tool without a name")
	}

	if _, exists := r.tools[meta.Name]; exists {
		return errors.WithFields(errors.New(errors.InvalidInput, "tool already registered"), errors.Fields{
			"tool_name": meta.Name,
		})
	}

	r.tools[meta.Name] = tool
	return nil
}

// Get retrieves a tool by name.
func (r *InMemoryToolRegistry) Get(name string) (core.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, errors.WithFields(errors.New(errors.ResourceNotFound, "tool not found"), errors.Fields{
			"tool_name": name,
		})
	}
	return tool, nil
}

// List returns all registered tools in no particular order.
func (r *InMemoryToolRegistry) List() []core.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]core.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		list = append(list, tool)
	}
	return list
}

// Match finds tools that might serve a given intent string. A tool matches
// when the intent mentions its name or enough of its capability keywords to
// clear the match cutoff.
func (r *InMemoryToolRegistry) Match(intent string) []core.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []core.Tool
	for _, tool := range r.tools {
		if calculateToolMatchScore(tool.Metadata(), intent) >= defaultMatchCutoff {
			matches = append(matches, tool)
		}
	}
	return matches
}

// Ensure InMemoryToolRegistry implements the interface.
var _ core.ToolRegistry = (*InMemoryToolRegistry)(nil)
