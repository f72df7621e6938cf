package device

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTransport implements interfaces.Transport for testing.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Exchange(ctx context.Context, apdu []byte) ([]byte, error) {
	args := m.Called(ctx, apdu)
	resp, _ := args.Get(0).([]byte)
	return resp, args.Error(1)
}

func (m *MockTransport) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockAddressDeriver implements interfaces.AddressDeriver for testing.
type MockAddressDeriver struct {
	mock.Mock
}

func (m *MockAddressDeriver) DeriveAddress(publicKey []byte) (string, uint8, error) {
	args := m.Called(publicKey)
	return args.String(0), args.Get(1).(uint8), args.Error(2)
}
