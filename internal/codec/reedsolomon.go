package codec

import (
	"bytes"
	"fmt"

	"github.com/vivint/infectious"
)

// UncorrectablePolicy decides what happens to a block the decoder cannot repair.
type UncorrectablePolicy string

const (
	// ZeroFill replaces the block's message bytes with zeros, flags them in the
	// error mask and reports the block as uncorrectable. Decoding continues.
	ZeroFill UncorrectablePolicy = "zero_fill"

	// Fail aborts the decode with ErrUncorrectable.
	Fail UncorrectablePolicy = "fail"
)

// maxReedSolomonSymbols is the largest codeword over GF(2^8).
const maxReedSolomonSymbols = 256

// ReedSolomon is a systematic (n, k) Reed-Solomon code over bytes. Each block
// of k message bytes becomes n code bytes and up to (n-k)/2 byte errors, or
// n-k erasures, are corrected per block.
type ReedSolomon struct {
	blockLength   int
	messageLength int
	n, k          int
	policy        UncorrectablePolicy
	fec           *infectious.FEC
}

// NewReedSolomon builds a codec from block and message lengths in bits. Both
// must be multiples of 8.
func NewReedSolomon(blockLength, messageLength int, policy UncorrectablePolicy) (*ReedSolomon, error) {
	if blockLength%8 != 0 || messageLength%8 != 0 {
		return nil, fmt.Errorf("%w: block (%d) and message (%d) lengths must be multiples of 8",
			ErrInvalidLength, blockLength, messageLength)
	}
	if messageLength <= 0 || messageLength >= blockLength {
		return nil, fmt.Errorf("%w: message length %d must be positive and below block length %d",
			ErrInvalidLength, messageLength, blockLength)
	}
	if blockLength/8 > maxReedSolomonSymbols {
		return nil, fmt.Errorf("%w: block length %d exceeds %d symbols", ErrInvalidLength, blockLength, maxReedSolomonSymbols)
	}

	switch policy {
	case "":
		policy = ZeroFill
	case ZeroFill, Fail:
	default:
		return nil, fmt.Errorf("%w: unknown uncorrectable policy %q", ErrInvalidLength, policy)
	}

	n, k := blockLength/8, messageLength/8
	fec, err := infectious.NewFEC(k, n)
	if err != nil {
		return nil, fmt.Errorf("failed to create reed-solomon (%d, %d) code: %w", n, k, err)
	}

	return &ReedSolomon{
		blockLength:   blockLength,
		messageLength: messageLength,
		n:             n,
		k:             k,
		policy:        policy,
		fec:           fec,
	}, nil
}

func (c *ReedSolomon) Name() string       { return "reed_solomon" }
func (c *ReedSolomon) BlockLength() int   { return c.blockLength }
func (c *ReedSolomon) MessageLength() int { return c.messageLength }

// Policy returns the uncorrectable block policy.
func (c *ReedSolomon) Policy() UncorrectablePolicy { return c.policy }

// Encode splits data into k-byte messages, zero padding the last one, and
// returns the concatenated n-byte codewords.
func (c *ReedSolomon) Encode(data []byte) ([]byte, error) {
	blocks := (len(data) + c.k - 1) / c.k
	out := make([]byte, 0, blocks*c.n)

	message := make([]byte, c.k)
	codeword := make([]byte, c.n)
	for b := 0; b < blocks; b++ {
		clear(message)
		copy(message, data[b*c.k:])

		// Share data is only valid inside the callback
		err := c.fec.Encode(message, func(s infectious.Share) {
			codeword[s.Number] = s.Data[0]
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode block %d: %w", b, err)
		}
		out = append(out, codeword...)
	}

	return out, nil
}

// Decode splits data into n-byte codewords and decodes each. Bytes flagged in
// mask are treated as erasures. A trailing partial codeword is zero padded.
func (c *ReedSolomon) Decode(data []byte, mask ErrorMask) (Result, error) {
	blocks := (len(data) + c.n - 1) / c.n
	out := make([]byte, blocks*c.k)
	errs := make(ErrorMask, blocks*c.k)
	report := Report{Codec: c.Name(), Blocks: make([]BlockStatus, blocks)}

	received := make([]byte, c.n)
	for b := 0; b < blocks; b++ {
		clear(received)
		copy(received, data[b*c.n:])

		shares := make([]infectious.Share, 0, c.n)
		erasures := 0
		for j := 0; j < c.n; j++ {
			if mask.Flagged(b*c.n + j) {
				erasures++
				continue
			}
			shares = append(shares, infectious.Share{Number: j, Data: []byte{received[j]}})
		}
		report.FlaggedSymbols += erasures

		message, err := c.fec.Decode(nil, shares)
		if err != nil || len(message) != c.k {
			if c.policy == Fail {
				return Result{}, fmt.Errorf("%w: block %d (%d erasures): %v", ErrUncorrectable, b, erasures, err)
			}
			report.Blocks[b] = BlockUncorrectable
			for i := b * c.k; i < (b+1)*c.k; i++ {
				errs[i] = true
			}
			continue
		}

		copy(out[b*c.k:], message)
		if erasures > 0 || !bytes.Equal(message, received[:c.k]) {
			report.Blocks[b] = BlockCorrected
		}
	}

	return Result{Data: out, Errors: errs, Report: report}, nil
}
