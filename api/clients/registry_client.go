package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/ruteri/healthcare-entity-registry/api"
	"github.com/ruteri/healthcare-entity-registry/interfaces"
)

// RegistryClient talks to the backend API over HTTP.
type RegistryClient struct {
	// ServerAddr is the base URL of the backend, e.g. http://127.0.0.1:3001
	ServerAddr string

	HTTPClient *http.Client
}

func NewRegistryClient(serverAddr string) *RegistryClient {
	return &RegistryClient{
		ServerAddr: strings.TrimSuffix(serverAddr, "/"),
		// registration waits for the transaction to be mined
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// SaveEntity mirrors a registration. A duplicate yields interfaces.ErrEntityExists.
func (c *RegistryClient) SaveEntity(ctx context.Context, kind interfaces.EntityKind, record *interfaces.EntityRecord) error {
	err := c.do(ctx, http.MethodPost, "/api/entities/"+kind.Collection(), record, nil, http.StatusCreated)
	return mapStatus(err, http.StatusConflict, interfaces.ErrEntityExists)
}

// GetEntity returns interfaces.ErrEntityNotFound if nothing is mirrored for address.
func (c *RegistryClient) GetEntity(ctx context.Context, kind interfaces.EntityKind, address common.Address) (*interfaces.EntityRecord, error) {
	var record interfaces.EntityRecord
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/entities/%s/%s", kind.Collection(), address.Hex()), nil, &record, http.StatusOK)
	if err != nil {
		return nil, mapStatus(err, http.StatusNotFound, interfaces.ErrEntityNotFound)
	}
	return &record, nil
}

func (c *RegistryClient) ListEntities(ctx context.Context, kind interfaces.EntityKind) ([]*interfaces.EntityRecord, error) {
	var records []*interfaces.EntityRecord
	if err := c.do(ctx, http.MethodGet, "/api/entities/"+kind.Collection(), nil, &records, http.StatusOK); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *RegistryClient) Role(ctx context.Context, address common.Address) (*api.RoleResponse, error) {
	var role api.RoleResponse
	if err := c.do(ctx, http.MethodGet, "/api/roles/"+address.Hex(), nil, &role, http.StatusOK); err != nil {
		return nil, err
	}
	return &role, nil
}

// RoleOf makes the client usable as an interfaces.RoleResolver.
func (c *RegistryClient) RoleOf(ctx context.Context, address common.Address) (interfaces.Role, error) {
	role, err := c.Role(ctx, address)
	if err != nil {
		return "", err
	}
	return role.Role, nil
}

// Register runs the registration workflow on the server, signed by the server's account.
func (c *RegistryClient) Register(ctx context.Context, kind interfaces.EntityKind, req interfaces.RegistrationRequest) (*api.RegisterResponse, error) {
	var resp api.RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/api/register/"+string(kind), req, &resp, http.StatusCreated); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Content fetches a stored registration payload.
func (c *RegistryClient) Content(ctx context.Context, hash interfaces.ContentHash) ([]byte, error) {
	var raw []byte
	err := c.do(ctx, http.MethodGet, "/api/content/"+url.PathEscape(string(hash)), nil, &raw, http.StatusOK)
	if err != nil {
		return nil, mapStatus(err, http.StatusNotFound, interfaces.ErrContentNotFound)
	}
	return raw, nil
}

func (c *RegistryClient) GetSetting(ctx context.Context, key string) (*interfaces.Setting, error) {
	var setting interfaces.Setting
	if err := c.do(ctx, http.MethodGet, "/api/settings/"+url.PathEscape(key), nil, &setting, http.StatusOK); err != nil {
		return nil, mapStatus(err, http.StatusNotFound, interfaces.ErrSettingNotFound)
	}
	return &setting, nil
}

func (c *RegistryClient) ListSettings(ctx context.Context) ([]*interfaces.Setting, error) {
	var settings []*interfaces.Setting
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &settings, http.StatusOK); err != nil {
		return nil, err
	}
	return settings, nil
}

// PutSetting stores the value and updates setting with the server's timestamp.
func (c *RegistryClient) PutSetting(ctx context.Context, setting *interfaces.Setting) error {
	return c.do(ctx, http.MethodPut, "/api/settings/"+url.PathEscape(setting.Key), api.SettingValue{Value: setting.Value}, setting, http.StatusOK)
}

func (c *RegistryClient) DeleteSetting(ctx context.Context, key string) error {
	err := c.do(ctx, http.MethodDelete, "/api/settings/"+url.PathEscape(key), nil, nil, http.StatusNoContent)
	return mapStatus(err, http.StatusNotFound, interfaces.ErrSettingNotFound)
}

func (c *RegistryClient) do(ctx context.Context, method, path string, in, out interface{}, expected int) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.ServerAddr+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expected {
		statusErr := &api.StatusError{StatusCode: resp.StatusCode}
		bodyBytes, err := io.ReadAll(resp.Body)
		if err == nil && json.Unmarshal(bodyBytes, &statusErr.Body) != nil {
			statusErr.Body.Error = strings.TrimSpace(string(bodyBytes))
		}
		return statusErr
	}

	switch out := out.(type) {
	case nil:
		return nil
	case *[]byte:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("could not read response: %w", err)
		}
		*out = data
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}

// mapStatus converts a StatusError with the given code into the sentinel.
func mapStatus(err error, code int, sentinel error) error {
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == code {
		return fmt.Errorf("%w: %s", sentinel, statusErr.Body.Error)
	}
	return err
}

var (
	_ interfaces.EntityRepository   = (*RegistryClient)(nil)
	_ interfaces.SettingsRepository = (*RegistryClient)(nil)
	_ interfaces.RoleResolver       = (*RegistryClient)(nil)
	_ api.RegistrationProvider      = (*RegistryClient)(nil)
	_ api.RoleProvider              = (*RegistryClient)(nil)
)
