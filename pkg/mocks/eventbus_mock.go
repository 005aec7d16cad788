package mocks

import (
	"context"

	"github.com/dukex/gtfs-pathways/pkg/eventbus"
	"github.com/dukex/gtfs-pathways/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockEventBus is a mock implementation of eventbus.EventBus interface.
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, topic string, envelope *models.QueueMessageEnvelope) error {
	args := m.Called(ctx, topic, envelope)

	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, topic string, handler eventbus.Handler, _ ...eventbus.SubscribeOption) error {
	args := m.Called(ctx, topic, handler)

	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}
