// Package testutil provides shared testify mocks for tests across the
// module.
package testutil

import (
	"context"

	"github.com/XiaoConstantine/ace-go/pkg/core"
	"github.com/stretchr/testify/mock"
)

// MockLLM is a testify mock for core.LLM. Expectations take the option
// slice as a single argument, so matchers are always three-valued:
//
//	llm.On("Generate", mock.Anything, mock.Anything, mock.Anything).
//		Return(&core.LLMResponse{Content: "..."}, nil)
type MockLLM struct {
	mock.Mock
}

var _ core.LLM = (*MockLLM)(nil)

func (m *MockLLM) Generate(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	args := m.Called(ctx, prompt, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if response, ok := args.Get(0).(*core.LLMResponse); ok {
		return response, args.Error(1)
	}
	// A bare string expectation becomes the response content.
	return &core.LLMResponse{Content: args.String(0)}, args.Error(1)
}

func (m *MockLLM) GenerateWithJSON(ctx context.Context, prompt string, opts ...core.GenerateOption) (map[string]interface{}, error) {
	args := m.Called(ctx, prompt, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockLLM) ProviderName() string {
	args := m.Called()
	name, _ := args.Get(0).(string)
	return name
}

func (m *MockLLM) ModelID() string {
	args := m.Called()
	id, _ := args.Get(0).(string)
	return id
}

func (m *MockLLM) Capabilities() []core.Capability {
	return []core.Capability{
		core.CapabilityCompletion,
		core.CapabilityChat,
		core.CapabilityJSON,
	}
}
