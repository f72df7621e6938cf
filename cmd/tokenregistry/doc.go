// Package main (cmd/tokenregistry) manages merkle token registry snapshots.
//
// Commands:
//
//	build    - Build a snapshot with proofs from a token list and print its root
//	verify   - Load a snapshot from a file or storage and verify every proof
//	publish  - Store a snapshot in one or more storage backends, printing the content id
//	serve    - Serve the read-only token registry API
//
// Storage locations are URIs:
//
//	file:///var/lib/tokens
//	s3://ACCESS:SECRET@bucket/prefix?region=eu-west-1
//	ipfs://127.0.0.1:5001/?timeout=30s
//
// Example workflow:
//
//	tokenregistry build --token-list tokens.json -o snapshot.json
//	tokenregistry publish --snapshot snapshot.json --storage file:///var/lib/tokens
//	tokenregistry serve --snapshot-id <id> --storage file:///var/lib/tokens --root <root>
package main
