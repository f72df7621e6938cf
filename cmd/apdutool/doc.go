// Package main (cmd/apdutool) encodes device commands without a device
// attached. It is useful for checking what a host would send.
//
// Commands:
//
//	path              - Serialize a derivation path to its 20-byte form
//	frames            - Print every sign-tx command for a transaction and tokens
//	decode-signature  - Decode a device signature into 64-byte normalized hex
//	token-metadata    - Serialize registry tokens as a count-prefixed list
//
// Example:
//
//	apdutool frames --path "m/44'/1234'/0'/0/0" --tx 0011aabb \
//	    --snapshot snapshot.json --token c368...7918
package main
