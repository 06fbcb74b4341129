package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Sibikrish3000/cr-agent/internal/llm"
	"github.com/Sibikrish3000/cr-agent/internal/workflow"
)

// MockWorkflowRunner mocks the WorkflowRunner interface
type MockWorkflowRunner struct {
	mock.Mock
}

func (m *MockWorkflowRunner) Run(ctx context.Context, messages []llm.Message, filePath string) (*workflow.Result, error) {
	args := m.Called(ctx, messages, filePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workflow.Result), args.Error(1)
}
