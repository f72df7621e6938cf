// Package hdpath parses hierarchical-deterministic derivation paths and
// serializes them into the fixed 20-byte form the device expects.
package hdpath

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ruteri/ledger-signer/interfaces"
)

const (
	// Depth is the number of components of every device path.
	Depth = 5

	// Size is the serialized length of a path.
	Size = Depth * 4

	// HardenedOffset is added to a hardened component.
	HardenedOffset uint32 = 0x80000000
)

// HDPath is a five-component derivation path. Hardened components carry
// HardenedOffset.
type HDPath [Depth]uint32

// Split parses a slash-delimited path of any length. A leading "m" segment
// is dropped and a trailing apostrophe marks a component as hardened.
func Split(path string) ([]uint32, error) {
	components := strings.Split(strings.TrimSpace(path), "/")
	if len(components) > 0 && components[0] == "m" {
		components = components[1:]
	}

	result := make([]uint32, 0, len(components))
	for _, component := range components {
		hardened := len(component) > 1 && strings.HasSuffix(component, "'")
		digits := strings.TrimSuffix(component, "'")

		value, err := strconv.ParseUint(digits, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrInvalidPath, path)
		}

		index := uint32(value)
		if hardened {
			if index >= HardenedOffset {
				return nil, fmt.Errorf("%w: %s: hardened component out of range", interfaces.ErrInvalidPath, path)
			}
			index += HardenedOffset
		}
		result = append(result, index)
	}

	return result, nil
}

// Parse parses a path that must have exactly Depth components.
func Parse(path string) (HDPath, error) {
	components, err := Split(path)
	if err != nil {
		return HDPath{}, err
	}

	if len(components) != Depth {
		return HDPath{}, fmt.Errorf("%w: expected %d components, got %d", interfaces.ErrInvalidPath, Depth, len(components))
	}

	var p HDPath
	copy(p[:], components)
	return p, nil
}

// Serialize parses path and returns its 20-byte encoding.
func Serialize(path string) ([]byte, error) {
	p, err := Parse(path)
	if err != nil {
		return nil, err
	}
	return p.Bytes(), nil
}

// Deserialize decodes a 20-byte path encoding.
func Deserialize(data []byte) (HDPath, error) {
	if len(data) != Size {
		return HDPath{}, fmt.Errorf("%w: expected %d bytes, got %d", interfaces.ErrInvalidPath, Size, len(data))
	}

	var p HDPath
	for i := range p {
		p[i] = binary.BigEndian.Uint32(data[4*i:])
	}
	return p, nil
}

// Bytes writes each component as a big-endian u32.
func (p HDPath) Bytes() []byte {
	buf := make([]byte, Size)
	for i, component := range p {
		binary.BigEndian.PutUint32(buf[4*i:], component)
	}
	return buf
}

// IsHardened reports whether component i has the hardened bit set.
func (p HDPath) IsHardened(i int) bool {
	return p[i]&HardenedOffset != 0
}

// AccountIndex is the last (address index) component.
func (p HDPath) AccountIndex() uint32 {
	return p[Depth-1]
}

// DerivationPath converts to the go-ethereum representation.
func (p HDPath) DerivationPath() accounts.DerivationPath {
	return accounts.DerivationPath(p[:])
}

// String renders the path as m/44'/1234'/0'/0/0.
func (p HDPath) String() string {
	return p.DerivationPath().String()
}
