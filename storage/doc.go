// Package storage provides content-addressed storage for registration payloads.
//
// Payloads are identified by IPFS CIDs. The IPFS backend is authoritative; file
// and S3 backends mirror the same bytes under the same CID, computed locally as
// CIDv1 (raw codec, sha2-256), which is what an IPFS node returns for a
// single-block payload added with raw leaves.
//
// # Storage URI Format
//
// Storage backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - ipfs://127.0.0.1:5001/?timeout=30s
//   - file:///var/lib/registry/payloads/
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/prefix/?region=us-west-2&endpoint=http://minio:9000
//
// # Multi-Backend Example
//
//	factory := storage.NewStorageBackendFactory(logger)
//	store, err := factory.CreateMultiStoreFromURIs([]string{
//	    "ipfs://127.0.0.1:5001",
//	    "file:///var/lib/registry/payloads/",
//	})
//	if err != nil {
//	    log.Fatalf("Failed to create storage: %v", err)
//	}
//	hash, err := store.Store(ctx, payload)
package storage
