/*
Package api holds the wire types and server configuration of the token
registry HTTP API.

The API is read-only and public. It serves the snapshot that a signer
needs to attach token metadata to transactions:

	GET /api/public/tokens            - every token in the snapshot
	GET /api/public/tokens/root       - the merkle root and snapshot size
	GET /api/public/tokens/{token_id} - one token and its inclusion proof

Handlers live in the tokenhandler subpackage and are mounted by package
httpserver, which adds health, drain and metrics endpoints.

Nothing served here is trusted on its own. A client pins the merkle root
out of band and checks every proof with tokenhandler.FetchToken before
handing the metadata to a signing session.
*/
package api
