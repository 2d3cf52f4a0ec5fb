package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/healthcare-entity-registry/interfaces"
)

// MultiStorageBackend implements interfaces.OffchainStore using multiple backends with fallback.
// The first backend that stores successfully determines the returned hash.
type MultiStorageBackend struct {
	backends []interfaces.OffchainStore
	log      *slog.Logger
}

// NewMultiStorageBackend creates a new multi-storage backend with fallback
func NewMultiStorageBackend(backends []interfaces.OffchainStore, logger *slog.Logger) *MultiStorageBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStorageBackend{
		backends: backends,
		log:      logger,
	}
}

// Fetch returns the content from the first available backend that has it.
func (m *MultiStorageBackend) Fetch(ctx context.Context, hash interfaces.ContentHash) ([]byte, error) {
	start := time.Now()
	var errs []error
	notFound := 0

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable",
				slog.String("backend_name", backend.Name()),
				slog.String("cid", string(hash)))
			continue
		}

		data, err := backend.Fetch(ctx, hash)
		if err == nil {
			m.log.Info("Successfully fetched content",
				slog.String("backend_name", backend.Name()),
				slog.String("cid", string(hash)),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		// a miss on one backend must not mask a failure on another
		if errors.Is(err, interfaces.ErrContentNotFound) {
			notFound++
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		}
		m.log.Debug("Failed to fetch from backend",
			slog.String("backend_name", backend.Name()),
			slog.String("cid", string(hash)),
			"err", err)
	}

	m.log.Error("All backends failed to fetch content",
		slog.String("cid", string(hash)),
		slog.Int("failed_backends", len(errs)),
		slog.Int("missing_backends", notFound),
		slog.Duration("duration", time.Since(start)))

	switch {
	case len(errs) > 0:
		return nil, fmt.Errorf("all backends failed to fetch %s: %w", hash, errors.Join(errs...))
	case notFound > 0:
		return nil, interfaces.ErrContentNotFound
	default:
		return nil, interfaces.ErrBackendUnavailable
	}
}

// Store saves data to all available backends
func (m *MultiStorageBackend) Store(ctx context.Context, data []byte) (interfaces.ContentHash, error) {
	start := time.Now()
	var result interfaces.ContentHash
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		hash, err := backend.Store(ctx, data)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Debug("Failed to store to backend",
				slog.String("backend_name", backend.Name()),
				"err", err)
			continue
		}

		if result == "" {
			result = hash
			m.log.Info("Successfully stored content",
				slog.String("backend_name", backend.Name()),
				slog.String("cid", string(hash)),
				slog.Duration("duration", time.Since(start)))
		} else if result != hash {
			// same data must produce the same CID across backends
			m.log.Warn("Inconsistent hashes from backends",
				slog.String("backend_name", backend.Name()),
				slog.String("expected_cid", string(result)),
				slog.String("actual_cid", string(hash)))
		}
	}

	if result == "" {
		m.log.Error("All backends failed to store data",
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		if len(errs) == 0 {
			return "", interfaces.ErrBackendUnavailable
		}
		return "", fmt.Errorf("all backends failed to store data: %w", errors.Join(errs...))
	}

	return result, nil
}

// Available checks if any backend is available
func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend
func (m *MultiStorageBackend) Name() string {
	return "multi-storage"
}

// LocationURI returns the URI of this backend
func (m *MultiStorageBackend) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}
