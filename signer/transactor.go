package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// ChainIDReader is satisfied by ethclient.Client and the simulated backend client.
type ChainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// NewTransactor builds transaction options signed by key for the chain the reader is connected to.
func NewTransactor(ctx context.Context, key *ecdsa.PrivateKey, chain ChainIDReader) (*bind.TransactOpts, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil key", ErrInvalidKey)
	}

	chainID, err := chain.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx
	return auth, nil
}
