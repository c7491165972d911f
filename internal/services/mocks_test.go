package services

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockConnectivityTester struct {
	mock.Mock
}

func (m *MockConnectivityTester) TestConnection(ctx context.Context, databaseURL string) error {
	args := m.Called(ctx, databaseURL)
	return args.Error(0)
}

type MockSchemaPusher struct {
	mock.Mock
}

func (m *MockSchemaPusher) Push(ctx context.Context, databaseURL string) error {
	args := m.Called(ctx, databaseURL)
	return args.Error(0)
}
