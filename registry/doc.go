// Package registry holds the token allowlist snapshot used to attach
// verifiable metadata to transaction outputs.
//
// A snapshot is produced offline by Build from a token list, persisted as
// JSON (root, tokens, proofs) and loaded once at startup with Load,
// LoadFile or LoadFrom. Loading verifies every proof, so a snapshot in
// memory is always self-consistent.
//
// The snapshot is passed explicitly to the components that need it, such
// as the frame encoder and the token HTTP handler:
//
//	snapshot, err := registry.LoadFile("tokens.json")
//	if err != nil {
//	    return err
//	}
//	session, err := device.NewSession(transport, device.WithProofSource(snapshot))
package registry
