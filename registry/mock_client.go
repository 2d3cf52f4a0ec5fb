package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/healthcare-entity-registry/interfaces"
)

// ErrAlreadyHasRole mirrors the contract's revert for accounts that already hold a role.
var ErrAlreadyHasRole = errors.New("account already has a role")

// MockRegistryClient provides a simple in-memory implementation of the RegistrationContract
// interface for testing purposes without requiring a blockchain connection.
// The client starts in a read-only state - call SetTransactOpts to enable transaction operations.
type MockRegistryClient struct {
	mutex  sync.RWMutex
	roles  map[common.Address]interfaces.Role
	hashes map[common.Address]interfaces.ContentHash
	sender common.Address
	block  uint64

	allowTransacting bool
}

// NewMockRegistryClient creates a new mock registry client with empty initial state.
func NewMockRegistryClient() *MockRegistryClient {
	return &MockRegistryClient{
		roles:  make(map[common.Address]interfaces.Role),
		hashes: make(map[common.Address]interfaces.ContentHash),
	}
}

// SetTransactOpts enables transaction operations on the mock client, signed by sender.
func (m *MockRegistryClient) SetTransactOpts(sender common.Address) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.sender = sender
	m.allowTransacting = true
}

// RoleOf returns the role assigned to account or interfaces.UnregisteredRole.
func (m *MockRegistryClient) RoleOf(ctx context.Context, account common.Address) (interfaces.Role, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	role, ok := m.roles[account]
	if !ok {
		return interfaces.UnregisteredRole, nil
	}
	return role, nil
}

// Sender returns the configured sender or ErrNoTransactOpts.
func (m *MockRegistryClient) Sender() (common.Address, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if !m.allowTransacting {
		return common.Address{}, ErrNoTransactOpts
	}
	return m.sender, nil
}

// Register assigns the kind's role to account and returns a synthetic receipt.
// Like the contract, it refuses accounts that already hold any role.
func (m *MockRegistryClient) Register(ctx context.Context, kind interfaces.EntityKind, account common.Address, hash interfaces.ContentHash) (*types.Receipt, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", interfaces.ErrUnknownEntityKind, kind)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.allowTransacting {
		return nil, ErrNoTransactOpts
	}
	if role, ok := m.roles[account]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyHasRole, role)
	}

	m.roles[account] = kind.Role()
	m.hashes[account] = hash
	m.block++

	txHash := crypto.Keccak256Hash([]byte(kind.ContractMethod()), account.Bytes(), []byte(hash), new(big.Int).SetUint64(m.block).Bytes())
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      txHash,
		BlockNumber: new(big.Int).SetUint64(m.block),
	}, nil
}

// ContentHashOf returns the hash recorded for account. It is specific to the mock.
func (m *MockRegistryClient) ContentHashOf(account common.Address) (interfaces.ContentHash, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	hash, ok := m.hashes[account]
	return hash, ok
}

// AssignRole sets a role directly, simulating a registration made elsewhere.
func (m *MockRegistryClient) AssignRole(account common.Address, role interfaces.Role) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.roles[account] = role
}
