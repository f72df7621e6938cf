package device

import (
	"errors"
	"fmt"

	"github.com/ruteri/ledger-signer/interfaces"
)

// Status words returned by the device.
const (
	StatusOK                     uint16 = 0x9000
	StatusBadCla                 uint16 = 0x6E00
	StatusBadIns                 uint16 = 0x6D00
	StatusBadP1P2                uint16 = 0x6B00
	StatusBadLen                 uint16 = 0x6700
	StatusUserCancelled          uint16 = 0x6985
	StatusTxDecodeFail           uint16 = 0xE000
	StatusTxSignFail             uint16 = 0xE001
	StatusOverflow               uint16 = 0xE002
	StatusDerivePathDecodeFail   uint16 = 0xE003
	StatusBlindSigningNotEnabled uint16 = 0xE004
	StatusInternalError          uint16 = 0xEF00
)

var statusNames = map[uint16]string{
	StatusOK:                     "Ok",
	StatusBadCla:                 "BadCla",
	StatusBadIns:                 "BadIns",
	StatusBadP1P2:                "BadP1P2",
	StatusBadLen:                 "BadLen",
	StatusUserCancelled:          "UserCancelled",
	StatusTxDecodeFail:           "TxDecodeFail",
	StatusTxSignFail:             "TxSignFail",
	StatusOverflow:               "Overflow",
	StatusDerivePathDecodeFail:   "DerivePathDecodeFail",
	StatusBlindSigningNotEnabled: "BlindSigningNotEnabled",
	StatusInternalError:          "InternalError",
}

// StatusName returns the device name of a status word, or "Unknown".
func StatusName(sw uint16) string {
	if name, ok := statusNames[sw]; ok {
		return name
	}
	return "Unknown"
}

// ErrSessionClosed is returned by operations started after Close.
var ErrSessionClosed = errors.New("session closed")

// StatusError reports a non-success status word. It matches
// interfaces.ErrDeviceRejected.
type StatusError struct {
	// Status is the raw status word.
	Status uint16

	// INS is the instruction that was rejected.
	INS byte
}

// Error returns the status name and code.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: instruction 0x%02x: %s (0x%04x)", interfaces.ErrDeviceRejected, e.INS, StatusName(e.Status), e.Status)
}

// Is reports whether target is interfaces.ErrDeviceRejected.
func (e *StatusError) Is(target error) bool {
	return target == interfaces.ErrDeviceRejected
}

// TransportError wraps a failure of the underlying channel. It matches
// interfaces.ErrTransportFailure and unwraps to the cause.
type TransportError struct {
	INS byte
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: instruction 0x%02x: %v", interfaces.ErrTransportFailure, e.INS, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == interfaces.ErrTransportFailure
}
