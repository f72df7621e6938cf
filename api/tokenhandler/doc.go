// Package tokenhandler serves registry snapshots over HTTP and provides
// the matching client functions.
//
// The client never trusts the server: FetchToken checks the returned proof
// against a root the caller pinned before returning metadata.
//
//	root, _ := merkle.HashFromHex(pinnedRoot)
//	token, proof, err := tokenhandler.FetchToken("https://tokens.example.com", id, root)
package tokenhandler
