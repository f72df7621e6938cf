package registry

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/ruteri/ledger-signer/interfaces"
	"github.com/ruteri/ledger-signer/merkle"
	"github.com/ruteri/ledger-signer/tokens"
)

// Snapshot is a read-only token allowlist: token metadata, per-token merkle
// proofs and the tree root. It is built or loaded once and never mutated,
// so any number of sessions may share it without locking.
type Snapshot struct {
	root   merkle.Hash
	tokens []tokens.TokenMetadata
	index  map[string]int
	proofs map[string][]byte
}

// snapshotJSON is the persisted form.
type snapshotJSON struct {
	Root   string                 `json:"root"`
	Tokens []tokens.TokenMetadata `json:"tokens"`
	Proofs map[string]string      `json:"proofs"`
}

func newSnapshot(root merkle.Hash, list []tokens.TokenMetadata, proofs map[string][]byte) (*Snapshot, error) {
	s := &Snapshot{
		root:   root,
		tokens: make([]tokens.TokenMetadata, 0, len(list)),
		index:  make(map[string]int, len(list)),
		proofs: make(map[string][]byte, len(proofs)),
	}

	for _, t := range list {
		id, err := t.ID()
		if err != nil {
			return nil, err
		}
		key := id.String()
		if _, ok := s.index[key]; ok {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrDuplicateToken, key)
		}
		t.TokenID = key
		s.index[key] = len(s.tokens)
		s.tokens = append(s.tokens, t)
	}

	for rawID, proof := range proofs {
		id, err := interfaces.NewTokenIDFromHex(rawID)
		if err != nil {
			return nil, err
		}
		key := id.String()
		if _, ok := s.index[key]; !ok {
			return nil, fmt.Errorf("%w: proof for unknown token %s", interfaces.ErrInvalidProof, key)
		}
		if _, ok := s.proofs[key]; ok {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrDuplicateToken, key)
		}
		s.proofs[key] = append([]byte(nil), proof...)
	}

	// Tokens and proofs are stored as pairs.
	for _, t := range s.tokens {
		if _, ok := s.proofs[t.TokenID]; !ok {
			return nil, fmt.Errorf("%w: missing proof for token %s", interfaces.ErrInvalidProof, t.TokenID)
		}
	}

	return s, nil
}

// Root returns the merkle root every proof must fold into.
func (s *Snapshot) Root() merkle.Hash {
	return s.root
}

// Len returns the number of tokens in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.tokens)
}

// Tokens returns a copy of the token list in registry order.
func (s *Snapshot) Tokens() []tokens.TokenMetadata {
	out := make([]tokens.TokenMetadata, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// Lookup finds token metadata by hex id, ignoring case. Unknown ids are not
// an error; the caller decides whether to omit or report them.
func (s *Snapshot) Lookup(tokenID string) (tokens.TokenMetadata, bool) {
	id, err := interfaces.NewTokenIDFromHex(tokenID)
	if err != nil {
		return tokens.TokenMetadata{}, false
	}
	i, ok := s.index[id.String()]
	if !ok {
		return tokens.TokenMetadata{}, false
	}
	return s.tokens[i], true
}

// ProofFor returns a copy of the proof bytes for a token id.
func (s *Snapshot) ProofFor(tokenID string) ([]byte, bool) {
	id, err := interfaces.NewTokenIDFromHex(tokenID)
	if err != nil {
		return nil, false
	}
	proof, ok := s.proofs[id.String()]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), proof...), true
}

// Verify checks token against the snapshot root using proof.
func (s *Snapshot) Verify(token tokens.TokenMetadata, proof []byte) error {
	record, err := tokens.SerializeSingle(token)
	if err != nil {
		return err
	}
	if err := merkle.Verify(record, proof, s.root); err != nil {
		return fmt.Errorf("token %s: %w", token.TokenID, err)
	}
	return nil
}

// VerifyAll checks every stored proof.
func (s *Snapshot) VerifyAll() error {
	for _, t := range s.tokens {
		if err := s.Verify(t, s.proofs[t.TokenID]); err != nil {
			return err
		}
	}
	return nil
}

// Marshal encodes the snapshot in its persisted JSON form.
func (s *Snapshot) Marshal() ([]byte, error) {
	out := snapshotJSON{
		Root:   s.root.String(),
		Tokens: s.tokens,
		Proofs: make(map[string]string, len(s.proofs)),
	}
	for id, proof := range s.proofs {
		out.Proofs[id] = hex.EncodeToString(proof)
	}
	return json.MarshalIndent(out, "", "  ")
}
