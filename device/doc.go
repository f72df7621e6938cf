// Package device drives a hardware signer over an abstract transport.
//
// A Session exposes the four device operations: GetVersion, GetAccount,
// SignHash and SignUnsignedTx. Every operation validates its inputs before
// sending anything, holds the session lock for the whole exchange and
// returns typed errors:
//
//   - *StatusError for a non-success status word (errors.Is
//     interfaces.ErrDeviceRejected)
//   - *TransportError for channel failures (errors.Is
//     interfaces.ErrTransportFailure)
//   - wrapped interfaces sentinels for validation failures
//
// Signing a transaction sends the token metadata frames and then the
// transaction frames produced by package frames, one at a time, and
// decodes the signature from the last response. Context cancellation is
// checked before every frame.
//
//	snapshot, _ := registry.LoadFile("tokens.json")
//	session, err := device.NewSession(transport,
//	    device.WithProofSource(snapshot),
//	    device.WithLogger(log),
//	)
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//	sig, err := session.SignUnsignedTx(ctx, "m/44'/1234'/0'/0/0", tx, metadata)
package device
