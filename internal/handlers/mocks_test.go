package handlers

import (
	"context"

	"github.com/saaskit/backend/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockCreditLedger struct {
	mock.Mock
}

func (m *MockCreditLedger) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *MockCreditLedger) DebitCredits(ctx context.Context, userID string, amount int64, description string) (*models.DebitResult, error) {
	args := m.Called(ctx, userID, amount, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DebitResult), args.Error(1)
}

func (m *MockCreditLedger) ListTransactions(ctx context.Context, userID string, limit int) ([]models.CreditTransaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CreditTransaction), args.Error(1)
}

type MockSetupBackend struct {
	mock.Mock
}

func (m *MockSetupBackend) IsSetupComplete() bool {
	return m.Called().Bool(0)
}

func (m *MockSetupBackend) TestDatabase(ctx context.Context, databaseURL string) error {
	return m.Called(ctx, databaseURL).Error(0)
}

func (m *MockSetupBackend) Configure(ctx context.Context, cfg models.SetupConfiguration) error {
	return m.Called(ctx, cfg).Error(0)
}

func (m *MockSetupBackend) InitDatabase(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
