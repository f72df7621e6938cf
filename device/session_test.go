package device

import (
	"context"
	"encoding/hex"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/ledger-signer/frames"
	"github.com/ruteri/ledger-signer/hdpath"
	"github.com/ruteri/ledger-signer/interfaces"
	"github.com/ruteri/ledger-signer/registry"
	"github.com/ruteri/ledger-signer/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testPath = "m/44'/1234'/0'/0/0"

	derSignature = "30450221008f111111111111111111111111111111111111111111111111111111111111110220fffffffffffffffefdfcfbfaf9f8f7f5b0a3d0d9a139902aadbf4a77ba1f2928"
	hexSignature = "8f11111111111111111111111111111111111111111111111111111111111111000000000000000102030405060708090a0b0c0d0e0f10111213141516171819"
)

var ok = []byte{0x90, 0x00}

func withStatus(data []byte, sw ...byte) []byte {
	if len(sw) == 0 {
		sw = ok
	}
	return append(append([]byte{}, data...), sw...)
}

func apdu(t *testing.T, ins, p1, p2 byte, data []byte) []byte {
	raw, err := frames.Command{CLA: CLA, INS: ins, P1: p1, P2: p2, Data: data}.Marshal()
	require.NoError(t, err)
	return raw
}

func mustHex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *MockTransport) {
	transport := new(MockTransport)
	session, err := NewSession(transport, opts...)
	require.NoError(t, err)
	return session, transport
}

func TestNewSession_InvalidPayload(t *testing.T) {
	_, err := NewSession(new(MockTransport), WithMaxPayload(300))
	assert.ErrorIs(t, err, interfaces.ErrInvalidPayloadSize)
}

func TestGetVersion(t *testing.T) {
	session, transport := newTestSession(t)
	transport.On("Exchange", mock.Anything, []byte{0x80, 0x00, 0x00, 0x00, 0x00}).Return(withStatus([]byte{0, 1, 2}), nil).Once()

	version, err := session.GetVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.1.2", version.String())
	transport.AssertExpectations(t)
}

func TestGetVersion_Errors(t *testing.T) {
	session, transport := newTestSession(t)

	transport.On("Exchange", mock.Anything, mock.Anything).Return(withStatus(nil, 0x6E, 0x00), nil).Once()
	_, err := session.GetVersion(context.Background())
	require.ErrorIs(t, err, interfaces.ErrDeviceRejected)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, StatusBadCla, statusErr.Status)
	assert.Contains(t, err.Error(), "BadCla")

	cause := errors.New("usb unplugged")
	transport.On("Exchange", mock.Anything, mock.Anything).Return(nil, cause).Once()
	_, err = session.GetVersion(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrTransportFailure)
	assert.ErrorIs(t, err, cause)

	transport.On("Exchange", mock.Anything, mock.Anything).Return(withStatus([]byte{1}), nil).Once()
	_, err = session.GetVersion(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrInvalidResponse)

	transport.On("Exchange", mock.Anything, mock.Anything).Return([]byte{0x90}, nil).Once()
	_, err = session.GetVersion(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrInvalidResponse)
}

func TestGetAccount(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	uncompressed := crypto.FromECDSAPub(&key.PublicKey)
	compressed := crypto.CompressPubkey(&key.PublicKey)

	path, err := hdpath.Serialize(testPath)
	require.NoError(t, err)

	deriver := new(MockAddressDeriver)
	deriver.On("DeriveAddress", compressed).Return("1DrDyTr9RpRsQnDnXo2YRiPzPW4ooHX5LLoqXrqfMrpQH", uint8(2), nil)

	session, transport := newTestSession(t, WithAddressDeriver(deriver))
	group := uint8(2)
	resp := withStatus(append(append([]byte{}, uncompressed...), 0x00, 0x00, 0x00, 0x07))
	transport.On("Exchange", mock.Anything, apdu(t, InsGetPublicKey, GroupNum, 2, append(append([]byte{}, path...), 0x01))).Return(resp, nil).Once()

	account, hdIndex, err := session.GetAccount(context.Background(), testPath, AccountOptions{TargetGroup: &group, Display: true})
	require.NoError(t, err)
	assert.Equal(t, uint32(7), hdIndex)
	assert.Equal(t, interfaces.Account{
		PublicKey: hex.EncodeToString(compressed),
		Address:   "1DrDyTr9RpRsQnDnXo2YRiPzPW4ooHX5LLoqXrqfMrpQH",
		Group:     2,
		KeyType:   interfaces.KeyTypeDefault,
	}, account)

	transport.AssertExpectations(t)
	deriver.AssertExpectations(t)
}

func TestGetAccount_NoTargetGroup(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	path, err := hdpath.Serialize(testPath)
	require.NoError(t, err)

	session, transport := newTestSession(t)
	resp := withStatus(append(crypto.FromECDSAPub(&key.PublicKey), 0, 0, 0, 0))
	transport.On("Exchange", mock.Anything, apdu(t, InsGetPublicKey, 0, 0, append(append([]byte{}, path...), 0x00))).Return(resp, nil).Once()

	account, hdIndex, err := session.GetAccount(context.Background(), testPath, AccountOptions{})
	require.NoError(t, err)
	assert.Zero(t, hdIndex)
	assert.Empty(t, account.Address)
	assert.Len(t, account.PublicKey, 66)
	transport.AssertExpectations(t)
}

func TestGetAccount_Validation(t *testing.T) {
	session, transport := newTestSession(t)
	ctx := context.Background()

	group := uint8(GroupNum)
	_, _, err := session.GetAccount(ctx, testPath, AccountOptions{TargetGroup: &group})
	assert.ErrorIs(t, err, interfaces.ErrInvalidGroup)

	_, _, err = session.GetAccount(ctx, testPath, AccountOptions{KeyType: interfaces.KeyTypeBIP340Schnorr})
	assert.ErrorIs(t, err, interfaces.ErrUnsupportedKeyType)

	_, _, err = session.GetAccount(ctx, "m/44'/1234'", AccountOptions{})
	assert.ErrorIs(t, err, interfaces.ErrInvalidPath)

	transport.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything)

	transport.On("Exchange", mock.Anything, mock.Anything).Return(withStatus(make([]byte, 69)), nil).Once()
	_, _, err = session.GetAccount(ctx, testPath, AccountOptions{})
	assert.ErrorIs(t, err, interfaces.ErrInvalidResponse)
}

func TestSignHash(t *testing.T) {
	path, err := hdpath.Serialize(testPath)
	require.NoError(t, err)
	hash := make([]byte, HashLength)
	for i := range hash {
		hash[i] = byte(i)
	}

	session, transport := newTestSession(t)
	transport.On("Exchange", mock.Anything, apdu(t, InsSignHash, 0, 0, append(append([]byte{}, path...), hash...))).Return(withStatus(mustHex(t, derSignature)), nil).Once()

	sig, err := session.SignHash(context.Background(), testPath, hash)
	require.NoError(t, err)
	assert.Equal(t, hexSignature, sig)
	transport.AssertExpectations(t)
}

func TestSignHash_Validation(t *testing.T) {
	session, transport := newTestSession(t)

	_, err := session.SignHash(context.Background(), testPath, make([]byte, 31))
	assert.ErrorIs(t, err, interfaces.ErrInvalidHashLength)
	transport.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything)

	transport.On("Exchange", mock.Anything, mock.Anything).Return(withStatus([]byte{0x30, 0x45, 0x02, 0x21}), nil).Once()
	_, err = session.SignHash(context.Background(), testPath, make([]byte, HashLength))
	assert.ErrorIs(t, err, interfaces.ErrMalformedSignature)

	transport.On("Exchange", mock.Anything, mock.Anything).Return(withStatus(nil, 0x69, 0x85), nil).Once()
	_, err = session.SignHash(context.Background(), testPath, make([]byte, HashLength))
	assert.ErrorIs(t, err, interfaces.ErrDeviceRejected)
	assert.Contains(t, err.Error(), "UserCancelled")
}

func loadSnapshot(t *testing.T) *registry.Snapshot {
	snapshot, err := registry.LoadFile(filepath.Join("..", "registry", "testdata", "snapshot.json"))
	require.NoError(t, err)
	return snapshot
}

func TestSignUnsignedTx(t *testing.T) {
	snapshot := loadSnapshot(t)
	session, transport := newTestSession(t, WithProofSource(snapshot))

	tx := make([]byte, 250)
	selected := snapshot.Tokens()[:2]
	expected, err := frames.NewEncoder(frames.MaxPayloadSize, snapshot)
	require.NoError(t, err)
	all, err := expected.EncodeSignTx(testPath, tx, selected)
	require.NoError(t, err)
	require.Len(t, all, 4)

	var sent [][]byte
	for i, f := range all {
		resp := withStatus(nil)
		if i == len(all)-1 {
			resp = withStatus(mustHex(t, derSignature))
		}
		transport.On("Exchange", mock.Anything, apdu(t, InsSignTx, f.P1, f.P2, f.Data)).
			Run(func(args mock.Arguments) { sent = append(sent, args.Get(1).([]byte)) }).
			Return(resp, nil).Once()
	}

	sig, err := session.SignUnsignedTx(context.Background(), testPath, tx, selected)
	require.NoError(t, err)
	assert.Equal(t, hexSignature, sig)
	transport.AssertExpectations(t)

	require.Len(t, sent, 4)
	for i, raw := range sent {
		assert.Equal(t, apdu(t, InsSignTx, all[i].P1, all[i].P2, all[i].Data), raw, "frame %d out of order", i)
	}
}

func TestSignUnsignedTx_ValidationBeforeSend(t *testing.T) {
	snapshot := loadSnapshot(t)
	session, transport := newTestSession(t, WithProofSource(snapshot))
	ctx := context.Background()

	token := snapshot.Tokens()[0]
	_, err := session.SignUnsignedTx(ctx, testPath, []byte{1}, []tokens.TokenMetadata{token, token})
	assert.ErrorIs(t, err, interfaces.ErrDuplicateToken)

	_, err = session.SignUnsignedTx(ctx, testPath, []byte{1}, snapshot.Tokens())
	assert.ErrorIs(t, err, interfaces.ErrTooManyTokens)

	_, err = session.SignUnsignedTx(ctx, "bad", []byte{1}, nil)
	assert.ErrorIs(t, err, interfaces.ErrInvalidPath)

	transport.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything)
}

func TestSignUnsignedTx_AbortsOnRejection(t *testing.T) {
	session, transport := newTestSession(t)

	transport.On("Exchange", mock.Anything, mock.Anything).Return(withStatus(nil), nil).Once()
	transport.On("Exchange", mock.Anything, mock.Anything).Return(withStatus(nil, 0xE0, 0x00), nil).Once()

	_, err := session.SignUnsignedTx(context.Background(), testPath, make([]byte, 1000), nil)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, StatusTxDecodeFail, statusErr.Status)
	assert.Equal(t, InsSignTx, statusErr.INS)
	transport.AssertNumberOfCalls(t, "Exchange", 2)
}

func TestSignUnsignedTx_ContextCancelledBetweenFrames(t *testing.T) {
	session, transport := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport.On("Exchange", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(withStatus(nil), nil).Once()

	_, err := session.SignUnsignedTx(ctx, testPath, make([]byte, 1000), nil)
	assert.ErrorIs(t, err, context.Canceled)
	transport.AssertNumberOfCalls(t, "Exchange", 1)
}

func TestClose(t *testing.T) {
	session, transport := newTestSession(t)
	transport.On("Close").Return(nil).Once()

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
	transport.AssertNumberOfCalls(t, "Close", 1)

	_, err := session.GetVersion(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrTransportFailure)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_SerializesConcurrentCalls(t *testing.T) {
	session, transport := newTestSession(t)

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	transport.On("Exchange", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
		}).
		Return(withStatus([]byte{1, 2, 3}), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := session.GetVersion(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxInFlight)
}

func TestStatusName(t *testing.T) {
	assert.Equal(t, "BlindSigningNotEnabled", StatusName(0xE004))
	assert.Equal(t, "Unknown", StatusName(0x1234))
}
