// Package frames builds the command frames of the signing protocol.
//
// A sign-transaction request is a stream of frames sent strictly in order:
// token metadata frames first, then transaction frames. Each frame carries
// two routing bytes:
//
//	(0, 0)  first frame of the first token, prefixed with the token count
//	(1, 0)  first frame of a later token
//	(1, 1)  proof continuation
//	(2, 0)  path and the start of the transaction
//	(2, 1)  transaction continuation
//
// Proof bytes are split on 32-byte boundaries so no hash straddles two
// frames.
package frames
