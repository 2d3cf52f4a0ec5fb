package interfaces

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrUnknownEntityKind is returned for kinds outside AllEntityKinds.
	ErrUnknownEntityKind = errors.New("unknown entity kind")

	// ErrEntityNotFound is returned when no mirror record exists for a kind and address.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrEntityExists is returned when a mirror record already exists for a kind and address.
	ErrEntityExists = errors.New("entity already exists")

	// ErrSettingNotFound is returned when a setting key is not present.
	ErrSettingNotFound = errors.New("setting not found")
)

// RoleResolver looks up the role currently assigned to an address.
type RoleResolver interface {
	// RoleOf returns the role of address, or UnregisteredRole.
	RoleOf(ctx context.Context, address common.Address) (Role, error)
}

// RegistrationContract is the on-chain source of truth for entity registrations.
type RegistrationContract interface {
	RoleResolver

	// Register submits the kind's registration transaction for account and hash,
	// signed by the active account, and waits for it to be mined.
	Register(ctx context.Context, kind EntityKind, account common.Address, hash ContentHash) (*types.Receipt, error)

	// Sender returns the account that signs registration transactions.
	Sender() (common.Address, error)
}

// RegistryFactory creates contract clients for different contract addresses.
type RegistryFactory interface {
	RegistryFor(address common.Address) (RegistrationContract, error)
}

// EntityMirror persists registration events into the local database.
type EntityMirror interface {
	SaveEntity(ctx context.Context, kind EntityKind, record *EntityRecord) error
}

// EntityRepository reads and writes mirrored entity records.
type EntityRepository interface {
	EntityMirror

	// GetEntity returns ErrEntityNotFound when nothing is mirrored for the address.
	GetEntity(ctx context.Context, kind EntityKind, address common.Address) (*EntityRecord, error)

	// ListEntities returns records ordered by timestamp, oldest first.
	ListEntities(ctx context.Context, kind EntityKind) ([]*EntityRecord, error)
}

// SettingsRepository manages application settings.
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (*Setting, error)
	ListSettings(ctx context.Context) ([]*Setting, error)
	PutSetting(ctx context.Context, setting *Setting) error
	DeleteSetting(ctx context.Context, key string) error
}
