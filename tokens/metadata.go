// Package tokens serializes token metadata into the fixed-width records the
// device uses to render token amounts it cannot otherwise trust.
//
// A record is laid out as
//
//	version (1) | token id (32) | symbol, zero padded (12) | decimals (1)
//
// and a list is a count byte followed by records in caller order.
package tokens

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ruteri/ledger-signer/interfaces"
)

const (
	// MaxSymbolLength is the fixed symbol width of a record.
	MaxSymbolLength = 12

	// MaxTokens is the largest number of records one signing request carries.
	MaxTokens = 5

	// RecordSize is the serialized size of a single TokenMetadata.
	RecordSize = 1 + 32 + MaxSymbolLength + 1
)

// TokenMetadata describes a token well enough for the device to display
// amounts. Values are immutable once constructed.
type TokenMetadata struct {
	Version  uint8  `json:"version"`
	TokenID  string `json:"tokenId"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// ID parses the hex token id.
func (t TokenMetadata) ID() (interfaces.TokenID, error) {
	return interfaces.NewTokenIDFromHex(t.TokenID)
}

// IDEqual compares two hex token ids ignoring case and a 0x prefix.
func IDEqual(a, b string) bool {
	return normalizeID(a) == normalizeID(b)
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(id, "0x"), "0X"))
}

// SerializeSingle encodes one token into exactly RecordSize bytes.
func SerializeSingle(t TokenMetadata) ([]byte, error) {
	id, err := t.ID()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrInvalidTokenID, t.TokenID)
	}

	if len(t.Symbol) > MaxSymbolLength {
		return nil, fmt.Errorf("%w: %q", interfaces.ErrSymbolTooLong, t.Symbol)
	}

	record := make([]byte, 0, RecordSize)
	record = append(record, t.Version)
	record = append(record, id[:]...)
	record = append(record, []byte(t.Symbol)...)
	record = append(record, make([]byte, MaxSymbolLength-len(t.Symbol))...)
	record = append(record, t.Decimals)
	return record, nil
}

// Deserialize decodes a single record produced by SerializeSingle.
func Deserialize(record []byte) (TokenMetadata, error) {
	if len(record) != RecordSize {
		return TokenMetadata{}, fmt.Errorf("%w: token record must be %d bytes, got %d", interfaces.ErrInvalidResponse, RecordSize, len(record))
	}

	id, err := interfaces.NewTokenIDFromBytes(record[1:33])
	if err != nil {
		return TokenMetadata{}, err
	}

	symbol := bytes.TrimRight(record[33:33+MaxSymbolLength], "\x00")
	return TokenMetadata{
		Version:  record[0],
		TokenID:  id.String(),
		Symbol:   string(symbol),
		Decimals: record[RecordSize-1],
	}, nil
}

// Check validates a list before encoding: no duplicate ids, every record
// encodable, and at most MaxTokens entries.
func Check(tokens []TokenMetadata) error {
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		key := normalizeID(t.TokenID)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s", interfaces.ErrDuplicateToken, t.TokenID)
		}
		seen[key] = struct{}{}
	}

	for _, t := range tokens {
		if _, err := SerializeSingle(t); err != nil {
			return err
		}
	}

	if len(tokens) > MaxTokens {
		return fmt.Errorf("%w: %d > %d", interfaces.ErrTooManyTokens, len(tokens), MaxTokens)
	}
	return nil
}

// SerializeList encodes a validated list as a count byte followed by the
// records in input order.
func SerializeList(tokens []TokenMetadata) ([]byte, error) {
	if err := Check(tokens); err != nil {
		return nil, err
	}

	out := make([]byte, 1, 1+len(tokens)*RecordSize)
	out[0] = byte(len(tokens))
	for _, t := range tokens {
		record, err := SerializeSingle(t)
		if err != nil {
			return nil, err
		}
		out = append(out, record...)
	}
	return out, nil
}
