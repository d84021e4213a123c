package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"freightx/internal/domain"
	"freightx/internal/service"
)

// MockExtractionService is a mock implementation of service.ExtractionService.
type MockExtractionService struct {
	mock.Mock
}

func (m *MockExtractionService) Extract(ctx context.Context, input service.ExtractionInput) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}

func (m *MockExtractionService) Providers(ctx context.Context) []service.ProviderStatus {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]service.ProviderStatus)
}

func (m *MockExtractionService) Ready(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}
