package storage

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/healthcare-entity-registry/interfaces"
)

const (
	defaultIPFSPort    = "5001"
	defaultIPFSTimeout = 30 * time.Second
	defaultS3Region    = "us-east-1"
)

// StorageBackendFactory creates storage backends from URI strings and manages
// multi-backend configurations for redundant storage.
type StorageBackendFactory struct {
	log *slog.Logger
}

// NewStorageBackendFactory creates a new factory instance that can create storage backends.
func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{
		log: logger,
	}
}

// StoreFor creates a storage backend from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - ipfs:// - IPFS node HTTP API
//   - s3:// - Amazon S3 or compatible object storage
//   - file:// - Local filesystem storage
func (sf *StorageBackendFactory) StoreFor(location interfaces.StorageBackendLocation) (interfaces.OffchainStore, error) {
	switch strings.ToLower(location.Scheme) {
	case "ipfs":
		return sf.createIPFSBackend(location)
	case "s3":
		return sf.createS3Backend(location)
	case "file":
		return sf.createFileBackend(location)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme %q", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiStore creates a multi-storage backend from a list of location URIs.
// Returns an error if no valid backends could be created from the provided URIs.
func (sf *StorageBackendFactory) CreateMultiStore(locations []interfaces.StorageBackendLocation) (interfaces.OffchainStore, error) {
	backends := make([]interfaces.OffchainStore, 0, len(locations))

	for _, location := range locations {
		backend, err := sf.StoreFor(location)
		if err != nil {
			sf.log.Warn("Failed to create storage backend",
				"err", err,
				slog.String("locationURI", location.Redacted()))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends created")
	}

	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewMultiStorageBackend(backends, sf.log), nil
}

// CreateMultiStoreFromURIs parses every URI and creates a multi-storage backend.
func (sf *StorageBackendFactory) CreateMultiStoreFromURIs(uris []string) (interfaces.OffchainStore, error) {
	locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
	for _, uri := range uris {
		location, err := interfaces.NewStorageBackendLocation(uri)
		if err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}
	return sf.CreateMultiStore(locations)
}

// createIPFSBackend creates an IPFS storage backend.
// URI format: ipfs://host:port/?timeout=30s
func (sf *StorageBackendFactory) createIPFSBackend(location interfaces.StorageBackendLocation) (interfaces.OffchainStore, error) {
	sf.log.Debug("Creating IPFS backend", slog.String("uri", location.Redacted()))

	host, port, found := strings.Cut(location.Host, ":")
	if host == "" {
		return nil, fmt.Errorf("%w: missing IPFS host", interfaces.ErrInvalidLocationURI)
	}
	if !found || port == "" {
		port = defaultIPFSPort
	}

	timeout := defaultIPFSTimeout
	if raw := location.GetParam("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout %q", interfaces.ErrInvalidLocationURI, raw)
		}
		timeout = parsed
	}

	return NewIPFSBackend(host, port, timeout, sf.log)
}

// createS3Backend creates an S3 or S3-compatible storage backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=http://minio:9000
func (sf *StorageBackendFactory) createS3Backend(location interfaces.StorageBackendLocation) (interfaces.OffchainStore, error) {
	// Host may carry embedded credentials
	bucketName := location.Host
	var accessKey, secretKey string
	if userinfo, bucket, found := strings.Cut(location.Host, "@"); found {
		bucketName = bucket
		accessKey, secretKey, _ = strings.Cut(userinfo, ":")
	}
	if bucketName == "" {
		return nil, fmt.Errorf("%w: missing S3 bucket", interfaces.ErrInvalidLocationURI)
	}
	sf.log.Debug("Creating S3 backend", slog.String("bucket", bucketName))

	region := location.GetParam("region")
	if region == "" {
		region = defaultS3Region
	}

	return NewS3Backend(bucketName, strings.TrimPrefix(location.Path, "/"), region, location.GetParam("endpoint"), accessKey, secretKey, sf.log)
}

// createFileBackend creates a file system storage backend.
// URI format: file:///absolute/path/ or file://./relative/path/
func (sf *StorageBackendFactory) createFileBackend(location interfaces.StorageBackendLocation) (interfaces.OffchainStore, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", location.Raw))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}

	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI %s", interfaces.ErrInvalidLocationURI, location.Raw)
	}

	return NewFileBackend(path, sf.log)
}
