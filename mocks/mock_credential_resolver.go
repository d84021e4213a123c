package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"freightx/internal/domain"
	"freightx/internal/port"
)

// MockCredentialResolver is a mock implementation of port.CredentialResolver.
type MockCredentialResolver struct {
	mock.Mock
}

func (m *MockCredentialResolver) Resolve(ctx context.Context, id domain.ProviderID) (*port.Credentials, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Credentials), args.Error(1)
}
