package registry

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ruteri/ledger-signer/interfaces"
	"github.com/ruteri/ledger-signer/merkle"
)

// Load parses a persisted snapshot and verifies every proof against its
// root before returning it.
func Load(data []byte) (*Snapshot, error) {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	root, err := merkle.HashFromHex(raw.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot root: %w", err)
	}

	proofs := make(map[string][]byte, len(raw.Proofs))
	for id, encoded := range raw.Proofs {
		proof, err := hex.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid proof for token %s: %w", id, err)
		}
		proofs[id] = proof
	}

	snapshot, err := newSnapshot(root, raw.Tokens, proofs)
	if err != nil {
		return nil, err
	}

	if err := snapshot.VerifyAll(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// LoadFile reads and verifies a snapshot from disk.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Load(data)
}

// LoadFrom fetches a published snapshot by content id. The fetched bytes
// must hash to id.
func LoadFrom(ctx context.Context, backend interfaces.StorageBackend, id interfaces.ContentID) (*Snapshot, error) {
	data, err := backend.Fetch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot %s: %w", id, err)
	}

	if computed := interfaces.ComputeID(data); !computed.Equal(id) {
		return nil, fmt.Errorf("snapshot content mismatch: expected %s, got %s", id, computed)
	}
	return Load(data)
}

// Publish stores the snapshot and returns the content id to pin.
func Publish(ctx context.Context, backend interfaces.StorageBackend, snapshot *Snapshot) (interfaces.ContentID, error) {
	data, err := snapshot.Marshal()
	if err != nil {
		return interfaces.ContentID{}, err
	}
	return backend.Store(ctx, data)
}
