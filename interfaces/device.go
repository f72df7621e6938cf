package interfaces

import "context"

// Transport exchanges a single raw APDU with the signing device. The
// returned response carries the instruction data followed by the 2-byte
// status word. Implementations block until the full response arrives or
// the channel fails; they must not reorder or retry.
type Transport interface {
	Exchange(ctx context.Context, apdu []byte) ([]byte, error)
	Close() error
}

// AddressDeriver turns a compressed public key into an address and the
// group it belongs to. Address derivation is chain specific and lives
// outside this module.
type AddressDeriver interface {
	DeriveAddress(publicKey []byte) (address string, group uint8, err error)
}

// KeyType selects the signature scheme of a derived account.
type KeyType string

const (
	KeyTypeDefault       KeyType = "default"
	KeyTypeBIP340Schnorr KeyType = "bip340-schnorr"
)

// Account is a device-derived key with its address metadata.
type Account struct {
	// PublicKey is the hex-encoded compressed secp256k1 public key.
	PublicKey string  `json:"publicKey"`
	Address   string  `json:"address,omitempty"`
	Group     uint8   `json:"group"`
	KeyType   KeyType `json:"keyType"`
}
