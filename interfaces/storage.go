package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// StorageBackendLocation represents URI for storage backend.
type StorageBackendLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname, prefixed with user:password@ when present
	Path   string     // Resource path
	Query  url.Values // Query parameters
}

// NewStorageBackendLocation creates a new storage location from a URI string with validation.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch parsed.Scheme {
	case "file", "s3", "ipfs":
	default:
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	// credentials stay attached to the host for backends that accept them
	host := parsed.Host
	if parsed.User != nil {
		host = parsed.User.String() + "@" + host
	}

	return StorageBackendLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
	}, nil
}

// Redacted returns the URI with its password masked, for logs and errors.
func (loc StorageBackendLocation) Redacted() string {
	parsed, err := url.Parse(loc.Raw)
	if err != nil {
		return loc.Scheme + "://(unparseable)"
	}
	return parsed.Redacted()
}

// GetParam returns a query parameter value.
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StorageBackendLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

var (
	// ErrContentNotFound is returned when requested content cannot be found in the storage backend.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a storage backend is not accessible.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")

	// ErrInvalidContentHash is returned when a string is not a valid CID.
	ErrInvalidContentHash = errors.New("invalid content hash")
)

// OffchainStore provides content-addressed storage for registration payloads.
type OffchainStore interface {
	// Store saves data and returns its content hash.
	Store(ctx context.Context, data []byte) (ContentHash, error)

	// Fetch retrieves data by content hash.
	Fetch(ctx context.Context, hash ContentHash) ([]byte, error)

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// OffchainStoreFactory creates storage backends.
type OffchainStoreFactory interface {
	// StoreFor creates backend from URI.
	// Supports file://, s3://, ipfs://
	StoreFor(location StorageBackendLocation) (OffchainStore, error)

	// CreateMultiStore creates aggregated storage backend.
	CreateMultiStore(locations []StorageBackendLocation) (OffchainStore, error)
}
