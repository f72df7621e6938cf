package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/ledger-signer/cmd/flags"
	"github.com/ruteri/ledger-signer/device"
	"github.com/ruteri/ledger-signer/frames"
	"github.com/ruteri/ledger-signer/hdpath"
	"github.com/ruteri/ledger-signer/registry"
	"github.com/ruteri/ledger-signer/signature"
	"github.com/ruteri/ledger-signer/tokens"
	"github.com/urfave/cli/v2"
)

var flagTx *cli.StringFlag = &cli.StringFlag{
	Name:     "tx",
	Usage:    "hex-encoded unsigned transaction",
	Required: true,
}

var flagToken *cli.StringSliceFlag = &cli.StringSliceFlag{
	Name:  "token",
	Usage: "token id to attach metadata for; repeatable",
}

func main() {
	app := &cli.App{
		Name:  "apdutool",
		Usage: "Offline encoder for device commands",
		Flags: append([]cli.Flag{flags.LogServiceFlagFn("apdutool")}, flags.LogFlags...),
		Commands: []*cli.Command{
			{
				Name:      "path",
				Usage:     "serialize a derivation path",
				ArgsUsage: "<path>",
				Action: func(cCtx *cli.Context) error {
					p, err := hdpath.Parse(cCtx.Args().First())
					if err != nil {
						return err
					}
					fmt.Printf("%s %s index=%d\n", p, hex.EncodeToString(p.Bytes()), p.AccountIndex())
					return nil
				},
			},
			{
				Name:  "frames",
				Usage: "print the sign-tx commands for a transaction",
				Flags: []cli.Flag{
					flags.PathFlag,
					flagTx,
					flagToken,
					flags.SnapshotFileFlag,
					flags.MaxPayloadFlag,
				},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)

					ts, snapshot, err := lookupTokens(cCtx)
					if err != nil {
						return err
					}

					var proofs frames.ProofSource
					if snapshot != nil {
						proofs = snapshot
					}

					encoder, err := frames.NewEncoder(cCtx.Int(flags.MaxPayloadFlag.Name), proofs)
					if err != nil {
						return err
					}

					tx, err := decodeTx(cCtx.String(flagTx.Name))
					if err != nil {
						return err
					}
					fs, err := encoder.EncodeSignTx(cCtx.String(flags.PathFlag.Name), tx, ts)
					if err != nil {
						return err
					}

					logger.Debug("Encoded transaction", "frames", len(fs), "txFrames", encoder.TxFrameCount(len(tx)))
					for _, f := range fs {
						raw, err := f.Command(device.CLA, device.InsSignTx).Marshal()
						if err != nil {
							return err
						}
						fmt.Println(hex.EncodeToString(raw))
					}
					return nil
				},
			},
			{
				Name:      "decode-signature",
				Usage:     "decode a device signature into normalized r||s hex",
				ArgsUsage: "<hex>",
				Action: func(cCtx *cli.Context) error {
					raw, err := hex.DecodeString(cCtx.Args().First())
					if err != nil {
						return err
					}
					encoded, err := signature.DecodeHex(raw)
					if err != nil {
						return err
					}
					fmt.Println(encoded)
					return nil
				},
			},
			{
				Name:  "token-metadata",
				Usage: "serialize registry tokens into the list encoding",
				Flags: []cli.Flag{
					flagToken,
					flags.SnapshotFileFlag,
				},
				Action: func(cCtx *cli.Context) error {
					ts, _, err := lookupTokens(cCtx)
					if err != nil {
						return err
					}

					encoded, err := tokens.SerializeList(ts)
					if err != nil {
						return err
					}
					fmt.Println(hex.EncodeToString(encoded))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// decodeTx decodes the --tx value with or without a 0x prefix. Odd length
// and non-hex input are rejected.
func decodeTx(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		raw = "0x" + raw
	}
	tx, err := hexutil.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --tx: %w", err)
	}
	if len(tx) == 0 {
		return nil, errors.New("invalid --tx: empty transaction")
	}
	return tx, nil
}

// lookupTokens resolves --token ids against --snapshot. Ids missing from
// the snapshot are an error here, unlike on the device path.
func lookupTokens(cCtx *cli.Context) ([]tokens.TokenMetadata, *registry.Snapshot, error) {
	ids := cCtx.StringSlice(flagToken.Name)
	path := cCtx.String(flags.SnapshotFileFlag.Name)
	if path == "" {
		if len(ids) > 0 {
			return nil, nil, errors.New("--token requires --snapshot")
		}
		return nil, nil, nil
	}

	snapshot, err := registry.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}

	ts := make([]tokens.TokenMetadata, 0, len(ids))
	for _, id := range ids {
		t, ok := snapshot.Lookup(id)
		if !ok {
			return nil, nil, fmt.Errorf("token %s is not in the registry", id)
		}
		ts = append(ts, t)
	}
	return ts, snapshot, nil
}
