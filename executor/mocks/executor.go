package mocks

import (
	"context"

	"github.com/absmach/rounds/executor"
	"github.com/stretchr/testify/mock"
)

var (
	_ executor.Backend = (*MockBackend)(nil)
	_ executor.Saver   = (*MockSaver)(nil)
)

// MockBackend is a mock implementation of the executor.Backend interface
type MockBackend struct {
	mock.Mock
}

// NewModel returns the configured model
func (m *MockBackend) NewModel(ctx context.Context) (executor.Model, error) {
	args := m.Called(ctx)
	return args.Get(0), args.Error(1)
}

// TrainEpoch records the call and returns the configured metrics
func (m *MockBackend) TrainEpoch(ctx context.Context, model executor.Model, opt *executor.Optimizer, train, valid executor.Batches) (executor.EpochMetrics, error) {
	args := m.Called(ctx, model, opt, train, valid)
	return args.Get(0).(executor.EpochMetrics), args.Error(1)
}

// Evaluate records the call and returns the configured evaluation
func (m *MockBackend) Evaluate(ctx context.Context, model executor.Model, valid executor.Batches) (executor.Evaluation, error) {
	args := m.Called(ctx, model, valid)
	return args.Get(0).(executor.Evaluation), args.Error(1)
}

// MockSaver is a mock implementation of the executor.Saver interface
type MockSaver struct {
	mock.Mock
}

// Save persists a model
func (m *MockSaver) Save(ctx context.Context, model executor.Model, path string) error {
	args := m.Called(ctx, model, path)
	return args.Error(0)
}
