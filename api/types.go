package api

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/healthcare-entity-registry/interfaces"
)

// RegisterResponse is returned by POST /api/register/{kind}.
type RegisterResponse struct {
	Message     string                   `json:"message"`
	Record      *interfaces.EntityRecord `json:"record"`
	ContentHash interfaces.ContentHash   `json:"contentHash"`
	TxHash      common.Hash              `json:"txHash"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`

	// Fields lists invalid request fields for validation failures.
	Fields []string `json:"fields,omitempty"`

	// Step, ContentHash and TxHash describe a registration that failed part way.
	Step        string                 `json:"step,omitempty"`
	ContentHash interfaces.ContentHash `json:"contentHash,omitempty"`
	TxHash      string                 `json:"txHash,omitempty"`
}

// RoleResponse is returned by GET /api/roles/{address}.
type RoleResponse struct {
	Address    common.Address  `json:"address"`
	Role       interfaces.Role `json:"role"`
	Registered bool            `json:"registered"`
}

// SettingValue is the body of PUT /api/settings/{key}.
type SettingValue struct {
	Value string `json:"value"`
}

// StatusError is returned by clients when the server answers with an unexpected status.
type StatusError struct {
	StatusCode int
	Body       ErrorResponse
}

func (e *StatusError) Error() string {
	if e.Body.Error == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Body.Error)
}

// RegistrationProvider runs the registration workflow on the server.
type RegistrationProvider interface {
	Register(ctx context.Context, kind interfaces.EntityKind, req interfaces.RegistrationRequest) (*RegisterResponse, error)
}

// RoleProvider resolves on-chain roles through the server.
type RoleProvider interface {
	Role(ctx context.Context, address common.Address) (*RoleResponse, error)
}
