package device

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/ledger-signer/common"
	"github.com/ruteri/ledger-signer/frames"
	"github.com/ruteri/ledger-signer/hdpath"
	"github.com/ruteri/ledger-signer/interfaces"
	"github.com/ruteri/ledger-signer/signature"
	"github.com/ruteri/ledger-signer/tokens"
	"go.uber.org/atomic"
)

// Command class and instructions.
const (
	CLA byte = 0x80

	InsGetVersion   byte = 0x00
	InsGetPublicKey byte = 0x01
	InsSignHash     byte = 0x02
	InsSignTx       byte = 0x03
)

const (
	// GroupNum is the number of address groups a target group may select.
	GroupNum = 4

	// HashLength is the size of a hash accepted by SignHash.
	HashLength = 32

	publicKeyLength = 65
	hdIndexLength   = 4
)

// Version is the device application version.
type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AccountOptions tune GetAccount.
type AccountOptions struct {
	// TargetGroup asks the device to search for an index whose address
	// falls in this group. nil derives at the path as given.
	TargetGroup *uint8

	// KeyType defaults to interfaces.KeyTypeDefault.
	KeyType interfaces.KeyType

	// Display asks the device to show the address for confirmation.
	Display bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithProofSource sets the token registry used to attach metadata to
// signing requests. Without it every token is dropped.
func WithProofSource(proofs frames.ProofSource) Option {
	return func(s *Session) {
		s.proofs = proofs
	}
}

// WithAddressDeriver sets the collaborator that derives addresses from
// public keys returned by GetAccount.
func WithAddressDeriver(deriver interfaces.AddressDeriver) Option {
	return func(s *Session) {
		s.deriver = deriver
	}
}

// WithMaxPayload overrides the per-frame payload limit.
func WithMaxPayload(maxPayload int) Option {
	return func(s *Session) {
		s.maxPayload = maxPayload
	}
}

// Session sequences commands to one device over one transport. Only one
// command is outstanding at a time; concurrent calls wait their turn.
type Session struct {
	mu sync.Mutex

	transport  interfaces.Transport
	encoder    *frames.Encoder
	proofs     frames.ProofSource
	deriver    interfaces.AddressDeriver
	maxPayload int
	closed     atomic.Bool
	log        *slog.Logger
}

// NewSession creates a session over transport.
func NewSession(transport interfaces.Transport, opts ...Option) (*Session, error) {
	s := &Session{
		transport:  transport,
		maxPayload: frames.MaxPayloadSize,
		log:        common.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	encoder, err := frames.NewEncoder(s.maxPayload, s.proofs)
	if err != nil {
		return nil, err
	}
	s.encoder = encoder
	return s, nil
}

// Close marks the session closed and closes the transport. An exchange in
// flight fails with the transport's error.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.transport.Close()
}

// exchange sends one command and returns the response data with the
// status word stripped.
func (s *Session) exchange(ctx context.Context, cmd frames.Command) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, &TransportError{INS: cmd.INS, Err: ErrSessionClosed}
	}

	apdu, err := cmd.Marshal()
	if err != nil {
		return nil, err
	}

	resp, err := s.transport.Exchange(ctx, apdu)
	if err != nil {
		return nil, &TransportError{INS: cmd.INS, Err: err}
	}

	data, sw, err := frames.SplitResponse(resp)
	if err != nil {
		return nil, err
	}
	if sw != StatusOK {
		return nil, &StatusError{Status: sw, INS: cmd.INS}
	}
	return data, nil
}

// GetVersion returns the version of the device application.
func (s *Session) GetVersion(ctx context.Context) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.exchange(ctx, frames.Command{CLA: CLA, INS: InsGetVersion})
	if err != nil {
		return Version{}, err
	}
	if len(data) < 3 {
		return Version{}, fmt.Errorf("%w: version response of %d bytes", interfaces.ErrInvalidResponse, len(data))
	}
	return Version{Major: data[0], Minor: data[1], Patch: data[2]}, nil
}

// GetAccount derives the public key at path and returns it with the
// derivation index the device settled on.
func (s *Session) GetAccount(ctx context.Context, path string, opts AccountOptions) (interfaces.Account, uint32, error) {
	var p1, p2 byte
	if opts.TargetGroup != nil {
		if *opts.TargetGroup >= GroupNum {
			return interfaces.Account{}, 0, fmt.Errorf("%w: %d", interfaces.ErrInvalidGroup, *opts.TargetGroup)
		}
		p1, p2 = GroupNum, *opts.TargetGroup
	}

	keyType := opts.KeyType
	if keyType == "" {
		keyType = interfaces.KeyTypeDefault
	}
	if keyType != interfaces.KeyTypeDefault {
		return interfaces.Account{}, 0, fmt.Errorf("%w: %s", interfaces.ErrUnsupportedKeyType, keyType)
	}

	encodedPath, err := hdpath.Serialize(path)
	if err != nil {
		return interfaces.Account{}, 0, err
	}

	display := byte(0)
	if opts.Display {
		display = 1
	}
	payload := append(encodedPath, display)

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.exchange(ctx, frames.Command{CLA: CLA, INS: InsGetPublicKey, P1: p1, P2: p2, Data: payload})
	if err != nil {
		return interfaces.Account{}, 0, err
	}
	if len(data) < publicKeyLength+hdIndexLength {
		return interfaces.Account{}, 0, fmt.Errorf("%w: public key response of %d bytes", interfaces.ErrInvalidResponse, len(data))
	}

	pub, err := crypto.UnmarshalPubkey(data[:publicKeyLength])
	if err != nil {
		return interfaces.Account{}, 0, fmt.Errorf("%w: %w", interfaces.ErrInvalidResponse, err)
	}
	compressed := crypto.CompressPubkey(pub)
	hdIndex := binary.BigEndian.Uint32(data[publicKeyLength : publicKeyLength+hdIndexLength])

	account := interfaces.Account{
		PublicKey: hex.EncodeToString(compressed),
		KeyType:   keyType,
	}
	if s.deriver != nil {
		address, group, err := s.deriver.DeriveAddress(compressed)
		if err != nil {
			return interfaces.Account{}, 0, fmt.Errorf("failed to derive address: %w", err)
		}
		account.Address = address
		account.Group = group
	}

	s.log.Debug("derived account", slog.String("path", path), slog.String("publicKey", account.PublicKey), slog.Uint64("hdIndex", uint64(hdIndex)))
	return account, hdIndex, nil
}

// SignHash asks the device to sign a 32-byte hash and returns the
// normalized hex signature.
func (s *Session) SignHash(ctx context.Context, path string, hash []byte) (string, error) {
	if len(hash) != HashLength {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", interfaces.ErrInvalidHashLength, HashLength, len(hash))
	}

	encodedPath, err := hdpath.Serialize(path)
	if err != nil {
		return "", err
	}
	payload := append(encodedPath, hash...)

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.exchange(ctx, frames.Command{CLA: CLA, INS: InsSignHash, Data: payload})
	if err != nil {
		return "", err
	}
	return signature.DecodeHex(data)
}

// SignUnsignedTx streams token metadata and the transaction to the device
// and returns the normalized hex signature from the final response. Inputs
// are validated before any frame is sent. Tokens without a proof in the
// registry are left out. The first failure aborts the stream; the device
// state cannot be resumed, so callers retry from the start.
func (s *Session) SignUnsignedTx(ctx context.Context, path string, tx []byte, ts []tokens.TokenMetadata) (string, error) {
	all, err := s.encoder.EncodeSignTx(path, tx, ts)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("signing transaction", slog.Int("txSize", len(tx)), slog.Int("tokens", len(ts)), slog.Int("frames", len(all)))

	var last []byte
	for i, frame := range all {
		last, err = s.exchange(ctx, frame.Command(CLA, InsSignTx))
		if err != nil {
			s.log.Warn("sign transaction aborted", slog.Int("frame", i), slog.Int("frames", len(all)), "err", err)
			return "", err
		}
	}
	return signature.DecodeHex(last)
}
