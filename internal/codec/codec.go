package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLength is returned when a codec is constructed with unusable block sizes.
	ErrInvalidLength = errors.New("codec: invalid block length")

	// ErrUncorrectable is returned by codecs configured to fail on uncorrectable blocks.
	ErrUncorrectable = errors.New("codec: uncorrectable block")

	// ErrUnknownKind is returned by New for an unregistered codec kind.
	ErrUnknownKind = errors.New("codec: unknown kind")
)

// ErrorMask flags bytes that are known or suspected to be wrong, one entry per byte.
type ErrorMask []bool

// Count returns the number of flagged bytes.
func (m ErrorMask) Count() int {
	n := 0
	for _, flagged := range m {
		if flagged {
			n++
		}
	}
	return n
}

// Flagged reports whether byte i is flagged. Indices past the mask are clean.
func (m ErrorMask) Flagged(i int) bool {
	return i >= 0 && i < len(m) && m[i]
}

// BlockStatus is the outcome of decoding one codec block.
type BlockStatus int

const (
	BlockOK BlockStatus = iota
	BlockCorrected
	BlockUncorrectable
)

func (s BlockStatus) String() string {
	switch s {
	case BlockOK:
		return "ok"
	case BlockCorrected:
		return "corrected"
	case BlockUncorrectable:
		return "uncorrectable"
	default:
		return fmt.Sprintf("BlockStatus(%d)", int(s))
	}
}

// Report summarises a decode.
type Report struct {
	Codec          string        `json:"codec"`
	Blocks         []BlockStatus `json:"blocks,omitempty"`
	FlaggedSymbols int           `json:"flagged_symbols"`
}

// Uncorrectable returns the indices of blocks that could not be decoded.
func (r Report) Uncorrectable() []int {
	var idx []int
	for i, s := range r.Blocks {
		if s == BlockUncorrectable {
			idx = append(idx, i)
		}
	}
	return idx
}

// Result is the output of a decode.
type Result struct {
	Data   []byte
	Errors ErrorMask
	Report Report
}

// Codec is a block codec. Encode and Decode are stateless with respect to
// previous calls.
type Codec interface {
	Name() string
	// BlockLength is the encoded block size in bits.
	BlockLength() int
	// MessageLength is the message size in bits carried by one block.
	MessageLength() int
	Encode(data []byte) ([]byte, error)
	Decode(data []byte, mask ErrorMask) (Result, error)
}

// Rate returns the code rate of c.
func Rate(c Codec) float64 {
	return float64(c.MessageLength()) / float64(c.BlockLength())
}
