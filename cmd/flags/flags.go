package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/ledger-signer/api"
	"github.com/ruteri/ledger-signer/common"
	"github.com/ruteri/ledger-signer/interfaces"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   cCtx.Bool(LogDebugFlag.Name),
		JSON:    cCtx.Bool(LogJsonFlag.Name),
		Service: cCtx.String(logServiceFlagName),
		Version: common.Version,
		Output:  cCtx.App.ErrWriter,
	})

	if cCtx.Bool(LogUidFlag.Name) {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *api.HTTPServerConfig {
	return &api.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// StorageLocations returns the values of StorageFlag.
func StorageLocations(cCtx *cli.Context) []interfaces.StorageBackendLocation {
	raw := cCtx.StringSlice(StorageFlag.Name)
	out := make([]interfaces.StorageBackendLocation, 0, len(raw))
	for _, location := range raw {
		out = append(out, interfaces.StorageBackendLocation(location))
	}
	return out
}

var SnapshotFileFlag *cli.StringFlag = &cli.StringFlag{
	Name:    "snapshot",
	Aliases: []string{"s"},
	Usage:   "path of a registry snapshot JSON file",
}

var SnapshotIDFlag *cli.StringFlag = &cli.StringFlag{
	Name:  "snapshot-id",
	Usage: "content id (64-char hex) of a published snapshot to load from --storage",
}

var StorageFlag *cli.StringSliceFlag = &cli.StringSliceFlag{
	Name:  "storage",
	Usage: "storage location URI (file://, s3://, ipfs://); repeat for fallback",
}

var RootFlag *cli.StringFlag = &cli.StringFlag{
	Name:  "root",
	Usage: "expected merkle root (64-char hex); loading fails on mismatch",
}

var PathFlag *cli.StringFlag = &cli.StringFlag{
	Name:  "path",
	Value: "m/44'/1234'/0'/0/0",
	Usage: "derivation path",
}

var MaxPayloadFlag *cli.IntFlag = &cli.IntFlag{
	Name:  "max-payload",
	Value: 255,
	Usage: "maximum payload bytes per frame",
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

const logServiceFlagName = "log-service"

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  logServiceFlagName,
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}

var ServerFlags = []cli.Flag{
	ListenAddrFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
