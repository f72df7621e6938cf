package interfaces

import "errors"

// Protocol error taxonomy. Every validation failure is reported before any
// bytes reach the device; callers branch on kind with errors.Is.
var (
	// ErrInvalidPath is returned when a derivation path does not parse to
	// exactly five numeric components.
	ErrInvalidPath = errors.New("invalid bip32 path")

	// ErrInvalidHashLength is returned when a hash to sign is not 32 bytes.
	ErrInvalidHashLength = errors.New("invalid hash length")

	ErrDuplicateToken = errors.New("there are duplicate tokens")
	ErrTooManyTokens  = errors.New("the token size exceeds maximum size")
	ErrInvalidTokenID = errors.New("invalid token id")
	ErrSymbolTooLong  = errors.New("the token symbol is too long")

	// ErrInvalidProofSize is returned when a merkle proof is empty, is not a
	// multiple of 32 bytes or does not fit the 16-bit length marker.
	ErrInvalidProofSize = errors.New("invalid token proof size")

	// ErrInvalidProof is returned when a proof does not fold into the
	// registry root. The token metadata must be treated as untrusted.
	ErrInvalidProof = errors.New("invalid token proof")

	ErrUnsupportedKeyType = errors.New("unsupported key type")
	ErrInvalidGroup       = errors.New("invalid target group")

	// ErrMalformedSignature is returned when the declared r/s lengths run
	// past the end of the device response.
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrInvalidResponse is returned when a device response is too short
	// for the instruction that produced it.
	ErrInvalidResponse = errors.New("invalid device response")

	// ErrInvalidPayloadSize is returned for frame encoder limits that cannot
	// carry a token record plus one proof hash, or exceed a one-byte Lc.
	ErrInvalidPayloadSize = errors.New("invalid max payload size")

	// ErrDeviceRejected matches any non-success status word.
	ErrDeviceRejected = errors.New("device rejected command")

	// ErrTransportFailure matches any failure reported by the transport.
	ErrTransportFailure = errors.New("transport failure")
)
