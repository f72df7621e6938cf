// Package signature decodes the variable-length r and s values returned by
// the device into a fixed 64-byte encoding.
package signature

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/ledger-signer/interfaces"
)

// Size is the length of the normalized r ‖ s encoding.
const Size = 64

// prefixSize covers the sequence tag, sequence length and r integer tag.
const prefixSize = 3

var (
	curveOrder     = crypto.S256().Params().N
	halfCurveOrder = new(big.Int).Rsh(curveOrder, 1)
)

// Signature holds the two integers as emitted by the device.
type Signature struct {
	R *big.Int
	S *big.Int
}

// Decode parses `30 L 02 rLen r 02 sLen s`. Only the lengths are checked;
// the tag bytes are not interpreted. Empty or zero r and s are rejected.
func Decode(resp []byte) (Signature, error) {
	if len(resp) < prefixSize+1 {
		return Signature{}, fmt.Errorf("%w: %d bytes", interfaces.ErrMalformedSignature, len(resp))
	}

	rLen := int(resp[prefixSize])
	rEnd := prefixSize + 1 + rLen
	// r is followed by the s tag and s length
	if rEnd+2 > len(resp) {
		return Signature{}, fmt.Errorf("%w: r length %d exceeds response", interfaces.ErrMalformedSignature, rLen)
	}
	r := resp[prefixSize+1 : rEnd]

	sLen := int(resp[rEnd+1])
	sEnd := rEnd + 2 + sLen
	if sEnd > len(resp) {
		return Signature{}, fmt.Errorf("%w: s length %d exceeds response", interfaces.ErrMalformedSignature, sLen)
	}
	s := resp[rEnd+2 : sEnd]

	if rLen == 0 || sLen == 0 {
		return Signature{}, fmt.Errorf("%w: empty component", interfaces.ErrMalformedSignature)
	}

	sig := Signature{
		R: new(big.Int).SetBytes(r),
		S: new(big.Int).SetBytes(s),
	}
	if sig.R.Sign() == 0 || sig.S.Sign() == 0 {
		return Signature{}, fmt.Errorf("%w: zero component", interfaces.ErrMalformedSignature)
	}
	return sig, nil
}

// Normalized returns a copy with s in the lower half of the curve order.
func (sig Signature) Normalized() Signature {
	s := new(big.Int).Set(sig.S)
	if s.Cmp(halfCurveOrder) > 0 {
		s.Sub(curveOrder, s)
	}
	return Signature{R: new(big.Int).Set(sig.R), S: s}
}

// Bytes returns the 64-byte r ‖ s encoding of the normalized signature.
func (sig Signature) Bytes() []byte {
	n := sig.Normalized()
	out := make([]byte, 0, Size)
	out = append(out, math.PaddedBigBytes(n.R, 32)...)
	return append(out, math.PaddedBigBytes(n.S, 32)...)
}

// Hex returns Bytes as lower-case hex without prefix.
func (sig Signature) Hex() string {
	return hex.EncodeToString(sig.Bytes())
}

// DecodeHex decodes resp and returns the normalized hex encoding.
func DecodeHex(resp []byte) (string, error) {
	sig, err := Decode(resp)
	if err != nil {
		return "", err
	}
	return sig.Hex(), nil
}
