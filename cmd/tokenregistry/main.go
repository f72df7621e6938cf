package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/ledger-signer/api/tokenhandler"
	"github.com/ruteri/ledger-signer/cmd/flags"
	"github.com/ruteri/ledger-signer/common"
	"github.com/ruteri/ledger-signer/httpserver"
	"github.com/ruteri/ledger-signer/interfaces"
	"github.com/ruteri/ledger-signer/merkle"
	"github.com/ruteri/ledger-signer/metrics"
	"github.com/ruteri/ledger-signer/registry"
	"github.com/ruteri/ledger-signer/storage"
	"github.com/urfave/cli/v2"
)

var flagTokenList *cli.StringFlag = &cli.StringFlag{
	Name:     "token-list",
	Usage:    "token list JSON ({\"tokens\":[{\"id\",\"symbol\",\"decimals\",\"name\"}]})",
	Required: true,
}

var flagOutput *cli.StringFlag = &cli.StringFlag{
	Name:    "output",
	Aliases: []string{"o"},
	Value:   "snapshot.json",
	Usage:   "where to write the snapshot",
}

var flagFetchTimeout *cli.DurationFlag = &cli.DurationFlag{
	Name:  "fetch-timeout",
	Value: 60 * time.Second,
	Usage: "timeout for fetching or storing a snapshot",
}

func main() {
	app := &cli.App{
		Name:  "tokenregistry",
		Usage: "Build, verify, publish and serve merkle token registry snapshots",
		Flags: append([]cli.Flag{flags.LogServiceFlagFn("tokenregistry")}, flags.LogFlags...),
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "build a snapshot with proofs from a token list",
				Flags: []cli.Flag{flagTokenList, flagOutput},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)

					data, err := os.ReadFile(cCtx.String(flagTokenList.Name))
					if err != nil {
						return err
					}

					list, err := registry.ParseTokenList(data)
					if err != nil {
						return err
					}

					snapshot, err := registry.Build(list)
					if err != nil {
						logger.Error("Failed to build snapshot", "err", err)
						return err
					}

					encoded, err := snapshot.Marshal()
					if err != nil {
						return err
					}

					output := cCtx.String(flagOutput.Name)
					if err := os.WriteFile(output, encoded, 0644); err != nil {
						return err
					}

					logger.Info("Snapshot written", "path", output, "tokens", snapshot.Len())
					fmt.Println(snapshot.Root())
					return nil
				},
			},
			{
				Name:  "verify",
				Usage: "load a snapshot, verify every proof and optionally the pinned root",
				Flags: []cli.Flag{
					flags.SnapshotFileFlag,
					flags.SnapshotIDFlag,
					flags.StorageFlag,
					flags.RootFlag,
					flagFetchTimeout,
				},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)

					snapshot, _, err := loadSnapshot(cCtx, logger)
					if err != nil {
						logger.Error("Snapshot verification failed", "err", err)
						return err
					}

					fmt.Printf("root=%s tokens=%d\n", snapshot.Root(), snapshot.Len())
					return nil
				},
			},
			{
				Name:  "publish",
				Usage: "store a verified snapshot in every storage backend and print its content id",
				Flags: []cli.Flag{
					flags.SnapshotFileFlag,
					flags.StorageFlag,
					flagFetchTimeout,
				},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)

					snapshot, err := registry.LoadFile(cCtx.String(flags.SnapshotFileFlag.Name))
					if err != nil {
						return err
					}

					backend, err := storage.NewStorageBackendFactory(logger).CreateMultiBackend(flags.StorageLocations(cCtx))
					if err != nil {
						return err
					}

					ctx, cancel := context.WithTimeout(context.Background(), cCtx.Duration(flagFetchTimeout.Name))
					defer cancel()

					id, err := registry.Publish(ctx, backend, snapshot)
					if err != nil {
						logger.Error("Failed to publish snapshot", "err", err)
						return err
					}

					logger.Info("Snapshot published", "contentID", id.String(), "backend", backend.Name())
					fmt.Println(id)
					return nil
				},
			},
			{
				Name:  "serve",
				Usage: "serve the token registry API",
				Flags: append([]cli.Flag{
					flags.SnapshotFileFlag,
					flags.SnapshotIDFlag,
					flags.StorageFlag,
					flags.RootFlag,
					flagFetchTimeout,
				}, flags.ServerFlags...),
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)

					snapshot, contentID, err := loadSnapshot(cCtx, logger)
					if err != nil {
						logger.Error("Failed to load snapshot", "err", err)
						return err
					}

					cfg := flags.ConfigureServer(cCtx, logger)

					metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
					if err != nil {
						logger.Error("Failed to create metrics server", "err", err)
						return err
					}
					metricsSrv.SetRegistryTokens(snapshot.Len())

					handler := tokenhandler.NewHandler(snapshot, logger).WithMetrics(metricsSrv)
					if contentID != nil {
						handler = handler.WithContentID(*contentID)
					}

					server, err := httpserver.New(cfg, metricsSrv, handler)
					if err != nil {
						logger.Error("Failed to create server", "err", err)
						return err
					}

					logger.Info("Starting server", "root", snapshot.Root().String(), "tokens", snapshot.Len())
					server.RunInBackground()

					exit := make(chan os.Signal, 1)
					signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
					<-exit
					logger.Info("Shutdown signal received")

					server.Shutdown()
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadSnapshot reads the snapshot from --snapshot or, when unset, fetches
// --snapshot-id from --storage. The content id is returned only in the
// latter case.
func loadSnapshot(cCtx *cli.Context, logger *slog.Logger) (*registry.Snapshot, *interfaces.ContentID, error) {
	var (
		snapshot  *registry.Snapshot
		contentID *interfaces.ContentID
		err       error
	)

	if path := cCtx.String(flags.SnapshotFileFlag.Name); path != "" {
		snapshot, err = registry.LoadFile(path)
		if err != nil {
			return nil, nil, err
		}
	} else {
		rawID := cCtx.String(flags.SnapshotIDFlag.Name)
		if rawID == "" {
			return nil, nil, errors.New("either --snapshot or --snapshot-id is required")
		}

		id, err := interfaces.NewContentIDFromHex(rawID)
		if err != nil {
			return nil, nil, err
		}

		backend, err := storage.NewStorageBackendFactory(logger).CreateMultiBackend(flags.StorageLocations(cCtx))
		if err != nil {
			return nil, nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), cCtx.Duration(flagFetchTimeout.Name))
		defer cancel()

		snapshot, err = registry.LoadFrom(ctx, backend, id)
		if err != nil {
			return nil, nil, err
		}
		contentID = &id
	}

	if pinned := cCtx.String(flags.RootFlag.Name); pinned != "" {
		root, err := merkle.HashFromHex(pinned)
		if err != nil {
			return nil, nil, err
		}
		if root != snapshot.Root() {
			return nil, nil, fmt.Errorf("%w: snapshot root %s does not match pinned root %s", interfaces.ErrInvalidProof, snapshot.Root(), root)
		}
	}

	return snapshot, contentID, nil
}
