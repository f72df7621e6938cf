package interfaces

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// TokenID is the 32-byte identifier of a fungible token.
type TokenID [32]byte

// NewTokenIDFromBytes copies a 32-byte slice into a TokenID.
func NewTokenIDFromBytes(source []byte) (TokenID, error) {
	if len(source) != 32 {
		return TokenID{}, fmt.Errorf("%w: expected 32 bytes, got %d", ErrInvalidTokenID, len(source))
	}

	var id TokenID
	copy(id[:], source)
	return id, nil
}

// NewTokenIDFromHex parses a 64-character hex string, with or without a 0x
// prefix. Case is ignored.
func NewTokenIDFromHex(source string) (TokenID, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(source, "0x"), "0X")
	if len(clean) != 64 {
		return TokenID{}, fmt.Errorf("%w: hex string must be 64 characters", ErrInvalidTokenID)
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return TokenID{}, fmt.Errorf("%w: %v", ErrInvalidTokenID, err)
	}

	return NewTokenIDFromBytes(raw)
}

// String returns the lower-case hex representation without prefix.
func (id TokenID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 32 bytes.
func (id TokenID) Bytes() []byte {
	return id[:]
}

// Equal compares two token ids.
func (id TokenID) Equal(other TokenID) bool {
	return bytes.Equal(id[:], other[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id TokenID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *TokenID) UnmarshalText(text []byte) error {
	parsed, err := NewTokenIDFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
