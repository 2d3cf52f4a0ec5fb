package registry

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ruteri/healthcare-entity-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContentHash = interfaces.ContentHash("bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy")

// TestRegistrationABI checks every kind maps onto a method of the contract ABI
func TestRegistrationABI(t *testing.T) {
	for _, kind := range interfaces.AllEntityKinds {
		method, ok := parsedRegistrationABI.Methods[kind.ContractMethod()]
		require.True(t, ok, "missing method for %s", kind)
		assert.Len(t, method.Inputs, 2)

		_, err := parsedRegistrationABI.Pack(kind.ContractMethod(), common.HexToAddress("0x01"), string(testContentHash))
		assert.NoError(t, err)
	}

	_, ok := parsedRegistrationABI.Methods["getUserRole"]
	assert.True(t, ok)
}

// TestRegistrationClient_RoleOf queries a contract that reports a fixed role
func TestRegistrationClient_RoleOf(t *testing.T) {
	backend, auth, _, err := SetupTestChain()
	require.NoError(t, err)
	defer backend.Close()

	tests := []struct {
		name string
		role interfaces.Role
	}{
		{name: "unregistered account", role: interfaces.UnregisteredRole},
		{name: "registered pharmacy", role: interfaces.PharmacyKind.Role()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contractAddr, err := deployRoleStub(backend, auth, string(tt.role))
			require.NoError(t, err)

			client, err := NewRegistrationClient(backend.Client(), backend.Client(), contractAddr)
			require.NoError(t, err)

			role, err := client.RoleOf(context.Background(), common.HexToAddress("0x1234"))
			require.NoError(t, err)
			assert.Equal(t, tt.role, role)
			assert.Equal(t, tt.role.Registered(), role.Registered())
		})
	}
}

// TestRegistrationClient_Register sends a registration transaction and waits for it
func TestRegistrationClient_Register(t *testing.T) {
	backend, auth, _, err := SetupTestChain()
	require.NoError(t, err)
	defer backend.Close()

	contractAddr, err := deployRoleStub(backend, auth, string(interfaces.UnregisteredRole))
	require.NoError(t, err)

	client, err := NewRegistrationClient(backend.Client(), backend.Client(), contractAddr)
	require.NoError(t, err)

	// Read-only client refuses to transact
	_, err = client.Register(context.Background(), interfaces.PharmacyKind, common.HexToAddress("0x1234"), testContentHash)
	assert.ErrorIs(t, err, ErrNoTransactOpts)
	_, err = client.Sender()
	assert.ErrorIs(t, err, ErrNoTransactOpts)

	client.SetTransactOpts(auth)
	sender, err := client.Sender()
	require.NoError(t, err)
	assert.Equal(t, auth.From, sender)

	_, err = client.Register(context.Background(), interfaces.EntityKind("hospital"), common.HexToAddress("0x1234"), testContentHash)
	assert.ErrorIs(t, err, interfaces.ErrUnknownEntityKind)

	stop := commitPeriodically(backend)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	receipt, err := client.Register(ctx, interfaces.PharmacyKind, common.HexToAddress("0x1234"), testContentHash)
	stop()
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	tx, _, err := backend.Client().TransactionByHash(context.Background(), receipt.TxHash)
	require.NoError(t, err)
	require.NotNil(t, tx.To())
	assert.Equal(t, contractAddr, *tx.To())

	expectedInput, err := parsedRegistrationABI.Pack("PharmacyRegistration", common.HexToAddress("0x1234"), string(testContentHash))
	require.NoError(t, err)
	assert.Equal(t, expectedInput, tx.Data())
}

// TestRegistrationClient_NoContract checks calls against an address without code fail
func TestRegistrationClient_NoContract(t *testing.T) {
	backend, auth, _, err := SetupTestChain()
	require.NoError(t, err)
	defer backend.Close()

	client, err := NewRegistrationClient(backend.Client(), backend.Client(), common.HexToAddress("0xdeadbeef"))
	require.NoError(t, err)
	client.SetTransactOpts(auth)

	_, err = client.RoleOf(context.Background(), common.HexToAddress("0x1234"))
	assert.ErrorIs(t, err, bind.ErrNoCode)

	_, err = client.Register(context.Background(), interfaces.DistributorKind, common.HexToAddress("0x1234"), testContentHash)
	assert.ErrorIs(t, err, bind.ErrNoCode)
}

func TestNewRegistrationClient_ZeroAddress(t *testing.T) {
	_, err := NewRegistrationClient(nil, nil, common.Address{})
	assert.Error(t, err)
}

func TestRegistryFactory(t *testing.T) {
	backend, auth, _, err := SetupTestChain()
	require.NoError(t, err)
	defer backend.Close()

	factory := NewRegistryFactory(backend.Client(), backend.Client()).WithTransactOpts(auth)
	contract, err := factory.RegistryFor(common.HexToAddress("0xdeadbeef"))
	require.NoError(t, err)

	sender, err := contract.Sender()
	require.NoError(t, err)
	assert.Equal(t, auth.From, sender)
}

func TestMockRegistryClient(t *testing.T) {
	m := NewMockRegistryClient()
	account := common.HexToAddress("0x1234")

	role, err := m.RoleOf(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, interfaces.UnregisteredRole, role)

	_, err = m.Register(context.Background(), interfaces.PharmacyKind, account, testContentHash)
	assert.ErrorIs(t, err, ErrNoTransactOpts)

	m.SetTransactOpts(common.HexToAddress("0xabcd"))
	receipt, err := m.Register(context.Background(), interfaces.PharmacyKind, account, testContentHash)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	role, err = m.RoleOf(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, interfaces.Role("Pharmacy"), role)

	hash, ok := m.ContentHashOf(account)
	assert.True(t, ok)
	assert.Equal(t, testContentHash, hash)

	// A second registration of any kind is refused
	_, err = m.Register(context.Background(), interfaces.ManufacturerKind, account, testContentHash)
	assert.ErrorIs(t, err, ErrAlreadyHasRole)
}

// SetupTestChain creates a simulated blockchain for testing purposes.
// It returns:
// - The simulated backend for direct control (commit blocks, etc.)
// - The transaction auth with the funded account
// - The private key for the funded account
func SetupTestChain() (*simulated.Backend, *bind.TransactOpts, *ecdsa.PrivateKey, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, nil, nil, err
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, big.NewInt(1337))
	if err != nil {
		return nil, nil, nil, err
	}

	balance := new(big.Int)
	balance.SetString("10000000000000000000", 10) // 10 ETH

	genesisAlloc := map[common.Address]types.Account{
		auth.From: {
			Balance: balance,
		},
	}

	blockGasLimit := uint64(8000000)
	backend := simulated.NewBackend(genesisAlloc, simulated.WithBlockGasLimit(blockGasLimit))

	return backend, auth, privateKey, nil
}

// roleStubBytecode builds creation code for a contract that answers every call
// with the ABI encoding of role. Registration transactions against it succeed.
func roleStubBytecode(role string) ([]byte, error) {
	stringType, err := abi.NewType("string", "", nil)
	if err != nil {
		return nil, err
	}
	ret, err := abi.Arguments{{Type: stringType}}.Pack(role)
	if err != nil {
		return nil, err
	}
	if len(ret) > 0xff-12 {
		return nil, fmt.Errorf("role too long for stub: %d bytes", len(ret))
	}

	// CODECOPY(0, 12, n) RETURN(0, n): copies the data that follows the 12-byte prefix
	copyAndReturn := func(n int) []byte {
		return []byte{0x60, byte(n), 0x60, 0x0c, 0x60, 0x00, 0x39, 0x60, byte(n), 0x60, 0x00, 0xf3}
	}

	runtime := append(copyAndReturn(len(ret)), ret...)
	return append(copyAndReturn(len(runtime)), runtime...), nil
}

// deployRoleStub deploys a role stub and waits for it to be mined
func deployRoleStub(backend *simulated.Backend, auth *bind.TransactOpts, role string) (common.Address, error) {
	bytecode, err := roleStubBytecode(role)
	if err != nil {
		return common.Address{}, err
	}

	contractAddr, tx, _, err := bind.DeployContract(auth, parsedRegistrationABI, bytecode, backend.Client())
	if err != nil {
		return common.Address{}, err
	}

	backend.Commit()

	receipt, err := backend.Client().TransactionReceipt(context.Background(), tx.Hash())
	if err != nil {
		return common.Address{}, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return common.Address{}, fmt.Errorf("contract deployment failed")
	}

	return contractAddr, nil
}

// commitPeriodically mines blocks until the returned stop function is called
func commitPeriodically(backend *simulated.Backend) (stop func()) {
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				backend.Commit()
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}
