// Package merkle implements the token allowlist tree.
//
// Leaves are BLAKE2b-256 hashes of serialized token records. An internal
// node hashes its two children concatenated in sorted byte order, so a
// proof is a plain list of sibling hashes with no left/right flags. A node
// without a sibling is promoted to the next level unchanged.
//
// Leaf and internal hashes are not domain separated; see DESIGN.md.
package merkle

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/ruteri/ledger-signer/interfaces"
	"golang.org/x/crypto/blake2b"
)

// HashSize is the size of every node hash.
const HashSize = blake2b.Size256

// Hash is a tree node.
type Hash [HashSize]byte

// String returns the hex encoding.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// HashFromHex parses a 64-character hex hash.
func HashFromHex(s string) (Hash, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hash hex: %w", err)
	}
	if len(raw) != HashSize {
		return Hash{}, fmt.Errorf("invalid hash length %d", len(raw))
	}
	var h Hash
	copy(h[:], raw)
	return h, nil
}

// LeafHash hashes a serialized token record.
func LeafHash(record []byte) Hash {
	return blake2b.Sum256(record)
}

// HashPair combines two nodes independently of their order.
func HashPair(a, b Hash) Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	buf := make([]byte, 0, 2*HashSize)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return blake2b.Sum256(buf)
}

// Tree keeps every level, leaves first, root last.
type Tree struct {
	levels [][]Hash
}

// Build constructs a tree over leaves. At least one leaf is required.
func Build(leaves []Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("merkle tree requires at least one leaf")
	}

	level := make([]Hash, len(leaves))
	copy(level, leaves)

	var levels [][]Hash
	for len(level) > 1 {
		levels = append(levels, level)
		next := make([]Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, HashPair(level[i], level[i+1]))
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}
	levels = append(levels, level)

	return &Tree{levels: levels}, nil
}

// Root returns the single top-level hash.
func (t *Tree) Root() Hash {
	return t.levels[len(t.levels)-1][0]
}

// Leaves returns the number of leaves.
func (t *Tree) Leaves() int {
	return len(t.levels[0])
}

// Proof returns the sibling hashes for leaf index, leaf level first.
// Levels where the node was promoted contribute nothing.
func (t *Tree) Proof(index int) ([]Hash, error) {
	if index < 0 || index >= t.Leaves() {
		return nil, fmt.Errorf("leaf index %d out of range", index)
	}

	var proof []Hash
	for depth, level := range t.levels[:len(t.levels)-1] {
		position := index >> depth
		sibling := position ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
	}
	return proof, nil
}

// EncodeProof concatenates proof hashes.
func EncodeProof(proof []Hash) []byte {
	out := make([]byte, 0, len(proof)*HashSize)
	for _, h := range proof {
		out = append(out, h[:]...)
	}
	return out
}

// DecodeProof splits concatenated proof bytes into hashes.
func DecodeProof(proof []byte) ([]Hash, error) {
	if len(proof)%HashSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", interfaces.ErrInvalidProofSize, len(proof))
	}

	hashes := make([]Hash, len(proof)/HashSize)
	for i := range hashes {
		copy(hashes[i][:], proof[i*HashSize:])
	}
	return hashes, nil
}

// Fold recomputes the root reached from leaf through proof.
func Fold(leaf Hash, proof []Hash) Hash {
	current := leaf
	for _, sibling := range proof {
		current = HashPair(current, sibling)
	}
	return current
}

// Verify checks that record is included under root via proof bytes.
func Verify(record []byte, proof []byte, root Hash) error {
	hashes, err := DecodeProof(proof)
	if err != nil {
		return err
	}

	if Fold(LeafHash(record), hashes) != root {
		return interfaces.ErrInvalidProof
	}
	return nil
}
