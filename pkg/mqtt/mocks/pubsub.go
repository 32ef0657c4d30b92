package mocks

import (
	"context"

	"github.com/absmach/rounds/pkg/mqtt"
	"github.com/absmach/rounds/pkg/run"
	"github.com/stretchr/testify/mock"
)

var _ mqtt.PubSub = (*MockPubSub)(nil)

type MockPubSub struct {
	mock.Mock
}

func (m *MockPubSub) Publish(ctx context.Context, ev run.Event) error {
	args := m.Called(ctx, ev)

	return args.Error(0)
}

func (m *MockPubSub) Subscribe(ctx context.Context, runID string, handler mqtt.Handler) error {
	args := m.Called(ctx, runID, handler)

	return args.Error(0)
}

func (m *MockPubSub) Unsubscribe(ctx context.Context, runID string) error {
	args := m.Called(ctx, runID)

	return args.Error(0)
}

func (m *MockPubSub) Disconnect(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
