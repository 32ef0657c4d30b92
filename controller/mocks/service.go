package mocks

import (
	"context"

	"github.com/absmach/rounds/controller"
	"github.com/absmach/rounds/pkg/dataset"
	"github.com/stretchr/testify/mock"
)

var _ controller.Service = (*MockService)(nil)

// MockService is a mock implementation of the controller.Service interface
type MockService struct {
	mock.Mock
}

// Run executes the configured rounds
func (m *MockService) Run(ctx context.Context, train, valid []dataset.Sample) (controller.Report, error) {
	args := m.Called(ctx, train, valid)
	return args.Get(0).(controller.Report), args.Error(1)
}

// Status returns the current run status
func (m *MockService) Status(ctx context.Context) (controller.Status, error) {
	args := m.Called(ctx)
	return args.Get(0).(controller.Status), args.Error(1)
}

// Report returns the current report
func (m *MockService) Report(ctx context.Context) (controller.Report, error) {
	args := m.Called(ctx)
	return args.Get(0).(controller.Report), args.Error(1)
}
