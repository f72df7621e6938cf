package registry

import (
	"encoding/json"
	"fmt"

	"github.com/ruteri/ledger-signer/merkle"
	"github.com/ruteri/ledger-signer/tokens"
)

// TokenListEntry is one token of a published token list.
type TokenListEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// TokenList is the input of the offline build step.
type TokenList struct {
	Tokens []TokenListEntry `json:"tokens"`
}

// ParseTokenList decodes a token list document.
func ParseTokenList(data []byte) (*TokenList, error) {
	var list TokenList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse token list: %w", err)
	}
	return &list, nil
}

// Build computes the merkle tree over the token list and returns a snapshot
// with a proof for every token. The result depends only on list order, so
// the step is reproducible.
func Build(list *TokenList) (*Snapshot, error) {
	metadata := make([]tokens.TokenMetadata, 0, len(list.Tokens))
	leaves := make([]merkle.Hash, 0, len(list.Tokens))
	for _, entry := range list.Tokens {
		t := tokens.TokenMetadata{
			Version:  0,
			TokenID:  entry.ID,
			Symbol:   entry.Symbol,
			Decimals: entry.Decimals,
		}
		record, err := tokens.SerializeSingle(t)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", entry.ID, err)
		}
		metadata = append(metadata, t)
		leaves = append(leaves, merkle.LeafHash(record))
	}

	tree, err := merkle.Build(leaves)
	if err != nil {
		return nil, err
	}

	proofs := make(map[string][]byte, len(metadata))
	for i, t := range metadata {
		proof, err := tree.Proof(i)
		if err != nil {
			return nil, err
		}
		proofs[t.TokenID] = merkle.EncodeProof(proof)
	}

	return newSnapshot(tree.Root(), metadata, proofs)
}
