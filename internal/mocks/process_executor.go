package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/appforge/appforge/internal/interfaces"
)

// ProcessExecutor is a testify mock for interfaces.ProcessExecutor
type ProcessExecutor struct {
	mock.Mock
}

// Execute mocks running an external command
func (m *ProcessExecutor) Execute(ctx context.Context, req interfaces.ExecRequest) (*interfaces.ExecResult, error) {
	args := m.Called(ctx, req)
	if result := args.Get(0); result != nil {
		return result.(*interfaces.ExecResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// Ensure ProcessExecutor implements interfaces.ProcessExecutor
var _ interfaces.ProcessExecutor = (*ProcessExecutor)(nil)
