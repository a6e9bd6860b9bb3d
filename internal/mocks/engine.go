package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/appforge/appforge/internal/interfaces"
)

// EngineRunner is a testify mock for interfaces.EngineRunner
type EngineRunner struct {
	mock.Mock
}

// Plan mocks the engine's plan action
func (m *EngineRunner) Plan(ctx context.Context) (*interfaces.EngineResult, error) {
	args := m.Called(ctx)
	if result := args.Get(0); result != nil {
		return result.(*interfaces.EngineResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// Apply mocks the engine's apply action
func (m *EngineRunner) Apply(ctx context.Context) (*interfaces.EngineResult, error) {
	args := m.Called(ctx)
	if result := args.Get(0); result != nil {
		return result.(*interfaces.EngineResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// Destroy mocks the engine's destroy action
func (m *EngineRunner) Destroy(ctx context.Context) (*interfaces.EngineResult, error) {
	args := m.Called(ctx)
	if result := args.Get(0); result != nil {
		return result.(*interfaces.EngineResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// Report mocks the engine's read-only drift report
func (m *EngineRunner) Report(ctx context.Context) (*interfaces.ReportResult, error) {
	args := m.Called(ctx)
	if result := args.Get(0); result != nil {
		return result.(*interfaces.ReportResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// EngineFactory is a trivial interfaces.EngineFactory returning a fixed runner
type EngineFactory struct {
	Runner interfaces.EngineRunner

	// LastModules records the module plan passed to the most recent call
	LastModules []interfaces.PlannedModule
}

// ForEnvironment returns the configured runner and records the module plan
func (f *EngineFactory) ForEnvironment(_ string, _ string, _ interfaces.BackendSettings, modules []interfaces.PlannedModule) interfaces.EngineRunner {
	f.LastModules = modules
	return f.Runner
}

// Ensure the mocks implement their interfaces
var (
	_ interfaces.EngineRunner  = (*EngineRunner)(nil)
	_ interfaces.EngineFactory = (*EngineFactory)(nil)
)
