package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/healthcare-entity-registry/interfaces"
)

// IPFSBackend implements a storage backend using the InterPlanetary File System (IPFS).
// It talks to the HTTP API of an IPFS node and pins everything it adds.
type IPFSBackend struct {
	shell       *shell.Shell
	readTimeout time.Duration
	host        string
	port        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates a new IPFS storage backend connected to the specified host and port.
func NewIPFSBackend(host, port string, timeout time.Duration, log *slog.Logger) (*IPFSBackend, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	sh := shell.NewShell(apiURL)
	sh.SetTimeout(timeout)

	return &IPFSBackend{
		shell:       sh,
		readTimeout: timeout,
		host:        host,
		port:        port,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/?timeout=%s", apiURL, timeout),
	}, nil
}

// Fetch retrieves data from IPFS by its content hash.
// Returns ErrContentNotFound if the content doesn't exist or ErrBackendUnavailable
// if the IPFS node is not accessible.
//
// A node that cannot find a CID usually keeps searching the network instead of
// answering, so a fetch that outlives the backend's read timeout while the node
// is up is reported as ErrContentNotFound. Cancellation of ctx itself is
// returned as is.
func (b *IPFSBackend) Fetch(ctx context.Context, hash interfaces.ContentHash) ([]byte, error) {
	start := time.Now()
	path := "/ipfs/" + string(hash)

	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable",
			slog.String("host", b.host),
			slog.String("port", b.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	readCtx, cancel := context.WithTimeout(ctx, b.readTimeout)
	defer cancel()

	data, err := b.cat(readCtx, path)
	if err != nil {
		// an offline node answers with an error message for missing blocks
		missing := strings.Contains(err.Error(), "no link named") || strings.Contains(err.Error(), "not found")
		if ctx.Err() == nil && errors.Is(readCtx.Err(), context.DeadlineExceeded) {
			missing = true
		}
		if missing {
			b.log.Debug("Content not found in IPFS",
				slog.String("path", path),
				slog.Duration("duration", time.Since(start)))
			return nil, fmt.Errorf("%w: %s", interfaces.ErrContentNotFound, hash)
		}

		b.log.Error("Failed to fetch data from IPFS",
			slog.String("path", path),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to fetch data from IPFS: %w", err)
	}

	b.log.Debug("Fetched content from IPFS",
		slog.String("path", path),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Store adds and pins data on IPFS and returns the CID reported by the node.
// Data is added as CIDv1 with raw leaves so small payloads match ComputeCID.
// Returns ErrBackendUnavailable if the IPFS node is not accessible.
func (b *IPFSBackend) Store(ctx context.Context, data []byte) (interfaces.ContentHash, error) {
	start := time.Now()

	if !b.shell.IsUp() {
		return "", interfaces.ErrBackendUnavailable
	}

	cid, err := b.shell.Add(bytes.NewReader(data), shell.CidVersion(1), shell.RawLeaves(true), shell.Pin(true))
	if err != nil {
		return "", fmt.Errorf("failed to add data to IPFS: %w", err)
	}

	hash, err := interfaces.ParseContentHash(cid)
	if err != nil {
		return "", fmt.Errorf("IPFS node returned %q: %w", cid, err)
	}

	b.log.Debug("Stored content in IPFS",
		slog.String("cid", string(hash)),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return hash, nil
}

// Available checks if the IPFS node is accessible.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name returns a unique identifier for this storage backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

// cat is shell.Cat bound to ctx.
func (b *IPFSBackend) cat(ctx context.Context, path string) ([]byte, error) {
	resp, err := b.shell.Request("cat", path).Send(ctx)
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	if resp.Error != nil {
		return nil, resp.Error
	}
	return io.ReadAll(resp.Output)
}
