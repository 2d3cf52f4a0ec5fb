package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/ruteri/healthcare-entity-registry/interfaces"
)

// ComputeCID returns the CIDv1 (raw codec, sha2-256) of data. IPFS produces the
// same identifier for single-block payloads added with raw leaves and CIDv1.
func ComputeCID(data []byte) (interfaces.ContentHash, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return interfaces.ContentHash(cid.NewCidV1(cid.Raw, sum).String()), nil
}

// VerifyCID checks that data hashes to hash. Only sha2-256 raw CIDs can be
// verified locally; other CIDs are accepted as is.
func VerifyCID(hash interfaces.ContentHash, data []byte) error {
	c, err := hash.CID()
	if err != nil {
		return err
	}
	if c.Type() != cid.Raw || c.Prefix().MhType != multihash.SHA2_256 {
		return nil
	}

	computed, err := c.Prefix().Sum(data)
	if err != nil {
		return fmt.Errorf("failed to hash content: %w", err)
	}
	if !computed.Equals(c) {
		return fmt.Errorf("content does not match %s", hash)
	}
	return nil
}
