package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/healthcare-entity-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRegistry mocks the RegistrationContract interface
type MockRegistry struct {
	mock.Mock
}

// RoleOf mocks the RoleOf method
func (m *MockRegistry) RoleOf(ctx context.Context, address common.Address) (interfaces.Role, error) {
	args := m.Called(address)
	return args.Get(0).(interfaces.Role), args.Error(1)
}

// Register mocks the Register method
func (m *MockRegistry) Register(ctx context.Context, kind interfaces.EntityKind, account common.Address, hash interfaces.ContentHash) (*types.Receipt, error) {
	args := m.Called(kind, account, hash)
	receipt, _ := args.Get(0).(*types.Receipt)
	return receipt, args.Error(1)
}

// Sender mocks the Sender method
func (m *MockRegistry) Sender() (common.Address, error) {
	args := m.Called()
	return args.Get(0).(common.Address), args.Error(1)
}

// MockRegistryFactory mocks the RegistryFactory interface
type MockRegistryFactory struct {
	mock.Mock
}

// RegistryFor mocks the RegistryFor method
func (m *MockRegistryFactory) RegistryFor(address common.Address) (interfaces.RegistrationContract, error) {
	args := m.Called(address)
	contract, _ := args.Get(0).(interfaces.RegistrationContract)
	return contract, args.Error(1)
}
