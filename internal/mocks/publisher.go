package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// PublisherMock stands in for the broker publisher behind audit and websocket events.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	args := m.Called(ctx, routingKey, event, headers)
	return args.Error(0)
}

// ExpectPublish accepts one successful publish on routingKey with any payload.
func (m *PublisherMock) ExpectPublish(routingKey string) *mock.Call {
	return m.On("Publish", mock.Anything, routingKey, mock.Anything, mock.Anything).Return(nil).Once()
}
