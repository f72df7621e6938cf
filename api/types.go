package api

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/ledger-signer/tokens"
)

// TokenListResponse lists every token in the served snapshot.
type TokenListResponse struct {
	// Root is the hex merkle root of the snapshot.
	Root string `json:"root"`

	Tokens []tokens.TokenMetadata `json:"tokens"`
}

// RootResponse identifies the served snapshot.
type RootResponse struct {
	Root   string `json:"root"`
	Tokens int    `json:"tokens"`

	// ContentID is the storage content id of the snapshot, when it was
	// loaded from a storage backend.
	ContentID string `json:"content_id,omitempty"`
}

// TokenResponse carries one token and its inclusion proof. Clients must
// verify the proof against a root they pinned themselves; the Root field
// is informational.
type TokenResponse struct {
	Token tokens.TokenMetadata `json:"token"`
	Proof hexutil.Bytes        `json:"proof"`
	Root  string               `json:"root"`
}
