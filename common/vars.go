package common

// Version is overridden at build time via -ldflags.
var Version = "dev"

// PackageName is used as the metrics namespace.
const PackageName = "ledger_signer"
