package frames

import (
	"encoding/binary"
	"fmt"

	"github.com/ruteri/ledger-signer/hdpath"
	"github.com/ruteri/ledger-signer/interfaces"
	"github.com/ruteri/ledger-signer/merkle"
	"github.com/ruteri/ledger-signer/tokens"
)

// proofLengthSize is the width of the big-endian proof length marker.
const proofLengthSize = 2

// MinPayloadSize is the smallest payload able to carry the count byte, one
// token record, the proof length marker and one proof hash.
const MinPayloadSize = 1 + tokens.RecordSize + proofLengthSize + merkle.HashSize

// ProofSource resolves inclusion proofs by token id. *registry.Snapshot
// implements it.
type ProofSource interface {
	ProofFor(tokenID string) ([]byte, bool)
}

// Encoder splits token metadata and transactions into frames no larger
// than its payload limit.
type Encoder struct {
	maxPayload int
	proofs     ProofSource
}

// NewEncoder returns an encoder for the given payload limit. proofs may be
// nil, in which case every token is dropped from the metadata frames.
func NewEncoder(maxPayload int, proofs ProofSource) (*Encoder, error) {
	if maxPayload > MaxPayloadSize || maxPayload < MinPayloadSize {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", interfaces.ErrInvalidPayloadSize, maxPayload, MinPayloadSize, MaxPayloadSize)
	}
	return &Encoder{maxPayload: maxPayload, proofs: proofs}, nil
}

// MaxPayload returns the configured payload limit.
func (e *Encoder) MaxPayload() int {
	return e.maxPayload
}

// EncodeProofLength encodes the proof length marker.
func EncodeProofLength(length int) ([]byte, error) {
	if length <= 0 || length%merkle.HashSize != 0 || length >= 0xFFFF {
		return nil, fmt.Errorf("%w: %d bytes", interfaces.ErrInvalidProofSize, length)
	}
	out := make([]byte, proofLengthSize)
	binary.BigEndian.PutUint16(out, uint16(length))
	return out, nil
}

// EncodeTokenMetadata produces the metadata frames for ts. At most
// tokens.MaxTokens entries are considered and entries without a proof are
// skipped. The count byte in the first frame is the number of tokens that
// were actually emitted. When nothing is emitted the result is a single
// frame holding a zero count.
func (e *Encoder) EncodeTokenMetadata(ts []tokens.TokenMetadata) ([]Frame, error) {
	if len(ts) > tokens.MaxTokens {
		ts = ts[:tokens.MaxTokens]
	}

	type entry struct {
		record []byte
		proof  []byte
	}
	entries := make([]entry, 0, len(ts))
	for _, t := range ts {
		if e.proofs == nil {
			break
		}
		proof, ok := e.proofs.ProofFor(t.TokenID)
		if !ok {
			continue
		}
		record, err := tokens.SerializeSingle(t)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{record: record, proof: proof})
	}

	if len(entries) == 0 {
		return []Frame{{P1: P1FirstToken, P2: P2First, Data: []byte{0x00}}}, nil
	}

	var out []Frame
	for i, en := range entries {
		var prefix []byte
		p1 := P1NextToken
		if i == 0 {
			prefix = []byte{byte(len(entries))}
			p1 = P1FirstToken
		}

		chunks, err := e.encodeTokenAndProof(prefix, en.record, en.proof)
		if err != nil {
			return nil, err
		}

		out = append(out, Frame{P1: p1, P2: P2First, Data: chunks[0]})
		for _, chunk := range chunks[1:] {
			out = append(out, Frame{P1: P1NextToken, P2: P2Continuation, Data: chunk})
		}
	}
	return out, nil
}

func (e *Encoder) encodeTokenAndProof(prefix, record, proof []byte) ([][]byte, error) {
	proofLength, err := EncodeProofLength(len(proof))
	if err != nil {
		return nil, err
	}

	remain := e.maxPayload - len(prefix) - len(record) - len(proofLength)
	firstProofSize := min(remain/merkle.HashSize*merkle.HashSize, len(proof))

	first := make([]byte, 0, len(prefix)+len(record)+len(proofLength)+firstProofSize)
	first = append(first, prefix...)
	first = append(first, record...)
	first = append(first, proofLength...)
	first = append(first, proof[:firstProofSize]...)

	chunks := [][]byte{first}
	chunkSize := e.maxPayload / merkle.HashSize * merkle.HashSize
	for from := firstProofSize; from < len(proof); {
		to := min(from+chunkSize, len(proof))
		chunks = append(chunks, append([]byte(nil), proof[from:to]...))
		from = to
	}
	return chunks, nil
}

// FirstTxCapacity is the number of transaction bytes carried by the first
// transaction frame.
func (e *Encoder) FirstTxCapacity() int {
	return e.maxPayload - hdpath.Size
}

// EncodeUnsignedTx produces the transaction frames: the serialized path and
// a prefix of tx first, then the remainder in chunks of at most the
// payload limit.
func (e *Encoder) EncodeUnsignedTx(path string, tx []byte) ([]Frame, error) {
	encodedPath, err := hdpath.Serialize(path)
	if err != nil {
		return nil, err
	}

	firstSize := min(e.FirstTxCapacity(), len(tx))
	first := make([]byte, 0, len(encodedPath)+firstSize)
	first = append(first, encodedPath...)
	first = append(first, tx[:firstSize]...)

	out := []Frame{{P1: P1Tx, P2: P2First, Data: first}}
	for from := firstSize; from < len(tx); {
		to := min(from+e.maxPayload, len(tx))
		out = append(out, Frame{P1: P1Tx, P2: P2Continuation, Data: append([]byte(nil), tx[from:to]...)})
		from = to
	}
	return out, nil
}

// EncodeSignTx validates ts and returns the complete frame sequence of a
// sign-transaction request: metadata frames followed by transaction frames.
// Nothing is produced if any input is invalid.
func (e *Encoder) EncodeSignTx(path string, tx []byte, ts []tokens.TokenMetadata) ([]Frame, error) {
	if err := tokens.Check(ts); err != nil {
		return nil, err
	}

	metadataFrames, err := e.EncodeTokenMetadata(ts)
	if err != nil {
		return nil, err
	}
	txFrames, err := e.EncodeUnsignedTx(path, tx)
	if err != nil {
		return nil, err
	}
	return append(metadataFrames, txFrames...), nil
}

// TxFrameCount returns the number of transaction frames for a payload of
// txLen bytes.
func (e *Encoder) TxFrameCount(txLen int) int {
	first := e.FirstTxCapacity()
	if txLen <= first {
		return 1
	}
	return (txLen-first+e.maxPayload-1)/e.maxPayload + 1
}
