package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTextExtractor is a mock implementation of port.TextExtractor.
type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) ExtractText(ctx context.Context, filename string, content []byte) (string, error) {
	args := m.Called(ctx, filename, content)
	return args.String(0), args.Error(1)
}
