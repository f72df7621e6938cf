// Package interfaces defines the contracts shared by the signer protocol
// packages, separating collaborator definitions from their implementations.
//
// # Device collaborators
//
//   - Transport: exchanges one raw APDU with the signing device and returns
//     its response (data followed by the status word)
//   - AddressDeriver: maps a device public key to a chain address and group
//
// # Storage
//
//   - StorageBackend: content-addressed storage for published registry
//     snapshots (file, S3, IPFS)
//
// # Type Definitions
//
//   - TokenID: 32-byte token identifier
//   - ContentID: SHA-256 content address of a stored snapshot
//   - Account, KeyType: account derivation results and options
//
// # Error Types
//
// The protocol error taxonomy lives here so that every package reports the
// same kinds:
//
//   - ErrInvalidPath, ErrInvalidHashLength
//   - ErrDuplicateToken, ErrTooManyTokens, ErrInvalidTokenID, ErrSymbolTooLong
//   - ErrInvalidProofSize, ErrInvalidProof
//   - ErrUnsupportedKeyType, ErrInvalidGroup
//   - ErrMalformedSignature, ErrInvalidResponse
//   - ErrDeviceRejected, ErrTransportFailure
//
// Callers should match with errors.Is rather than on message text.
package interfaces
