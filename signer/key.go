package signer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidKey is returned when key material cannot be parsed as a secp256k1 private key.
var ErrInvalidKey = errors.New("invalid private key")

// KeySource provides the private key that signs registration transactions.
type KeySource interface {
	PrivateKey(ctx context.Context) (*ecdsa.PrivateKey, error)
}

// KeyFromHex parses a hex encoded private key. The 0x prefix is optional.
func KeyFromHex(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// StaticKey is a KeySource backed by an already loaded key.
type StaticKey struct {
	key *ecdsa.PrivateKey
}

func NewStaticKey(key *ecdsa.PrivateKey) *StaticKey {
	return &StaticKey{key: key}
}

func (s *StaticKey) PrivateKey(ctx context.Context) (*ecdsa.PrivateKey, error) {
	if s.key == nil {
		return nil, fmt.Errorf("%w: no key loaded", ErrInvalidKey)
	}
	return s.key, nil
}
