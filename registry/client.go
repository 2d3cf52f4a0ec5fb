// Package registry provides a client for the on-chain entity registration contract.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ruteri/healthcare-entity-registry/interfaces"
)

var (
	// ErrNoTransactOpts is returned when a transaction is attempted without first setting transaction options.
	ErrNoTransactOpts = errors.New("no authorized transactor available")

	// ErrTransactionReverted is returned when a registration transaction was mined with a failed status.
	ErrTransactionReverted = errors.New("transaction reverted")
)

// RegistrationClient implements the interfaces.RegistrationContract interface for
// interacting with a registration smart contract deployed on a blockchain.
type RegistrationClient struct {
	contract *bind.BoundContract
	client   bind.ContractBackend
	backend  bind.DeployBackend
	address  common.Address
	auth     *bind.TransactOpts
}

// NewRegistrationClient creates a new client for the registration contract at the
// specified address. It requires a ContractBackend for calls and transactions
// and a DeployBackend for waiting on receipts.
func NewRegistrationClient(client bind.ContractBackend, backend bind.DeployBackend, address common.Address) (*RegistrationClient, error) {
	if address == (common.Address{}) {
		return nil, errors.New("registration contract address is not set")
	}

	contract := bind.NewBoundContract(address, parsedRegistrationABI, client, client, client)
	return &RegistrationClient{
		contract: contract,
		client:   client,
		backend:  backend,
		address:  address,
	}, nil
}

// SetTransactOpts sets the transaction options required for functions that modify state.
// This must be called before Register or Sender.
func (c *RegistrationClient) SetTransactOpts(auth *bind.TransactOpts) {
	c.auth = auth
}

// Address returns the contract address.
func (c *RegistrationClient) Address() common.Address {
	return c.address
}

// RoleOf queries the role assigned to account. Accounts without a role report
// interfaces.UnregisteredRole.
func (c *RegistrationClient) RoleOf(ctx context.Context, account common.Address) (interfaces.Role, error) {
	opts := &bind.CallOpts{Context: ctx}

	var out []interface{}
	if err := c.contract.Call(opts, &out, "getUserRole", account); err != nil {
		return "", fmt.Errorf("getUserRole(%s): %w", account.Hex(), err)
	}
	if len(out) != 1 {
		return "", fmt.Errorf("getUserRole(%s): unexpected output length %d", account.Hex(), len(out))
	}

	role := *abi.ConvertType(out[0], new(string)).(*string)
	return interfaces.Role(role), nil
}

// Sender returns the account that signs registration transactions.
func (c *RegistrationClient) Sender() (common.Address, error) {
	if c.auth == nil {
		return common.Address{}, ErrNoTransactOpts
	}
	return c.auth.From, nil
}

// Register sends the registration transaction for kind and waits until it is mined.
// A mined transaction with a failed status returns the receipt together with ErrTransactionReverted.
func (c *RegistrationClient) Register(ctx context.Context, kind interfaces.EntityKind, account common.Address, hash interfaces.ContentHash) (*types.Receipt, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", interfaces.ErrUnknownEntityKind, kind)
	}
	if c.auth == nil {
		return nil, ErrNoTransactOpts
	}

	opts := *c.auth
	opts.Context = ctx

	method := kind.ContractMethod()
	tx, err := c.contract.Transact(&opts, method, account, string(hash))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("waiting for %s: %w", tx.Hash().Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTransactionReverted, tx.Hash().Hex())
	}
	return receipt, nil
}

// RegistryFactory creates RegistrationContract instances for different contract addresses.
type RegistryFactory struct {
	client  bind.ContractBackend
	backend bind.DeployBackend
	auth    *bind.TransactOpts
}

// NewRegistryFactory creates a new factory for registration clients.
// It requires a ContractBackend for reading from the blockchain and a DeployBackend for transactions.
func NewRegistryFactory(client bind.ContractBackend, backend bind.DeployBackend) *RegistryFactory {
	return &RegistryFactory{client: client, backend: backend}
}

// WithTransactOpts makes every client created by the factory able to send transactions.
func (f *RegistryFactory) WithTransactOpts(auth *bind.TransactOpts) *RegistryFactory {
	f.auth = auth
	return f
}

// RegistryFor returns a RegistrationContract instance for the specified contract address.
func (f *RegistryFactory) RegistryFor(address common.Address) (interfaces.RegistrationContract, error) {
	client, err := NewRegistrationClient(f.client, f.backend, address)
	if err != nil {
		return nil, err
	}
	if f.auth != nil {
		client.SetTransactOpts(f.auth)
	}
	return client, nil
}

var _ interfaces.RegistryFactory = (*RegistryFactory)(nil)
