package frames

import (
	"encoding/binary"
	"fmt"

	"github.com/ruteri/ledger-signer/interfaces"
)

// MaxPayloadSize is the largest payload a single command can carry; the
// length travels in one byte.
const MaxPayloadSize = 255

// HeaderSize is CLA, INS, P1, P2 and the length byte.
const HeaderSize = 5

// Routing tags for sign-transaction frames, as (P1, P2) pairs.
const (
	P1FirstToken byte = 0x00
	P1NextToken  byte = 0x01
	P1Tx         byte = 0x02

	P2First        byte = 0x00
	P2Continuation byte = 0x01
)

// Frame is one bounded chunk of a multi-frame request together with the
// routing bytes that tell the device how to interpret it.
type Frame struct {
	P1   byte
	P2   byte
	Data []byte
}

// Command wraps the frame into a command for the given class and
// instruction.
func (f Frame) Command(cla, ins byte) Command {
	return Command{CLA: cla, INS: ins, P1: f.P1, P2: f.P2, Data: f.Data}
}

// Command is a single request sent to the device.
type Command struct {
	CLA  byte
	INS  byte
	P1   byte
	P2   byte
	Data []byte
}

// Marshal encodes the command as CLA INS P1 P2 Lc data.
func (c Command) Marshal() ([]byte, error) {
	if len(c.Data) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", interfaces.ErrInvalidPayloadSize, len(c.Data))
	}

	out := make([]byte, 0, HeaderSize+len(c.Data))
	out = append(out, c.CLA, c.INS, c.P1, c.P2, byte(len(c.Data)))
	return append(out, c.Data...), nil
}

// ParseCommand decodes bytes produced by Marshal.
func ParseCommand(raw []byte) (Command, error) {
	if len(raw) < HeaderSize {
		return Command{}, fmt.Errorf("%w: command shorter than header", interfaces.ErrInvalidResponse)
	}
	length := int(raw[4])
	if len(raw) != HeaderSize+length {
		return Command{}, fmt.Errorf("%w: declared %d data bytes, got %d", interfaces.ErrInvalidResponse, length, len(raw)-HeaderSize)
	}
	return Command{
		CLA:  raw[0],
		INS:  raw[1],
		P1:   raw[2],
		P2:   raw[3],
		Data: append([]byte(nil), raw[HeaderSize:]...),
	}, nil
}

// SplitResponse separates a raw response into its data and the trailing
// 16-bit status word.
func SplitResponse(resp []byte) ([]byte, uint16, error) {
	if len(resp) < 2 {
		return nil, 0, fmt.Errorf("%w: response of %d bytes has no status word", interfaces.ErrInvalidResponse, len(resp))
	}
	n := len(resp) - 2
	return resp[:n], binary.BigEndian.Uint16(resp[n:]), nil
}
