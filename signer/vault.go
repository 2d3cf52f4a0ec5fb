package signer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
)

// ErrKeyNotFound is returned when the Vault secret or its field does not exist.
var ErrKeyNotFound = errors.New("signer key not found in vault")

// VaultKeySource reads the signer key from a HashiCorp Vault KV v2 secret.
type VaultKeySource struct {
	client    *api.Client
	mountPath string
	dataPath  string
	field     string
	log       *slog.Logger
}

// NewVaultKeySource creates a key source for the secret at {mountPath}/data/{dataPath}.
// An empty token falls back to VAULT_TOKEN from the environment.
func NewVaultKeySource(address, token, mountPath, dataPath, field string, log *slog.Logger) (*VaultKeySource, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.HttpClient = &http.Client{
		Timeout: 30 * time.Second,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	return &VaultKeySource{
		client:    client,
		mountPath: strings.Trim(mountPath, "/"),
		dataPath:  strings.Trim(dataPath, "/"),
		field:     field,
		log:       log,
	}, nil
}

// PrivateKey reads the secret and parses the configured field as a hex key.
func (s *VaultKeySource) PrivateKey(ctx context.Context) (*ecdsa.PrivateKey, error) {
	path := fmt.Sprintf("%s/data/%s", s.mountPath, s.dataPath)

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.log.Error("Failed to read signer key from Vault",
			slog.String("path", path),
			"err", err)
		return nil, fmt.Errorf("failed to read %s from Vault: %w", path, err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, path)
	}

	// KV v2 nests the stored fields under "data"
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s has no data", ErrKeyNotFound, path)
	}

	raw, ok := data[s.field].(string)
	if !ok {
		return nil, fmt.Errorf("%w: field %q missing at %s", ErrKeyNotFound, s.field, path)
	}

	key, err := KeyFromHex(raw)
	if err != nil {
		return nil, err
	}

	s.log.Info("Loaded signer key from Vault", slog.String("path", path))
	return key, nil
}
