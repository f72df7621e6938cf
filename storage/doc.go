// Package storage publishes and retrieves token registry snapshots by
// content id (the SHA-256 of the snapshot bytes).
//
// Backends are created from location URIs by StorageBackendFactory:
//
//   - file:///var/lib/ledger-signer
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=us-west-2
//   - ipfs://127.0.0.1:5001/?timeout=30s
//
// Every backend keeps snapshots under a "snapshots" namespace. Several
// locations can be combined with CreateMultiBackend: stores go to every
// available backend and fetches return the first hit.
//
//	factory := storage.NewStorageBackendFactory(log)
//	backend, err := factory.CreateMultiBackend([]interfaces.StorageBackendLocation{
//	    "file:///var/lib/ledger-signer",
//	    "s3://tokens-bucket/registry?region=eu-west-1",
//	})
//	if err != nil {
//	    return err
//	}
//	snapshot, err := registry.LoadFrom(ctx, backend, pinnedID)
//
// Callers must not trust fetched bytes on the backend's word: registry.LoadFrom
// rehashes them against the requested id before parsing.
package storage
