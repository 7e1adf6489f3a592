package bitio

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidWidth is returned for bit widths outside the accepted range.
	ErrInvalidWidth = errors.New("bitio: invalid bit width")

	// ErrNullBuffer is returned when a nil buffer is written.
	ErrNullBuffer = errors.New("bitio: nil buffer")

	// ErrShortRead is returned when a linear stream has fewer bits left than requested.
	// It marks the end of data and is not fatal on its own.
	ErrShortRead = errors.New("bitio: short read")
)

// maxWriteWidth is the widest value WriteBits accepts.
const maxWriteWidth = 64

// Packer is an append-only bit buffer. Every value is written most significant bit first
// and bits are packed across byte boundaries without padding.
type Packer struct {
	buf  []byte
	bits int
}

// NewPacker creates an empty packer.
func NewPacker() *Packer {
	return &Packer{}
}

// WriteBits appends the low width bits of value, MSB first.
func (p *Packer) WriteBits(value uint64, width int) error {
	if width <= 0 || width > maxWriteWidth {
		return fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}

	for i := width - 1; i >= 0; i-- {
		p.writeBit(byte(value>>uint(i)) & 1)
	}

	return nil
}

// WriteBytes appends every bit of buf. An empty buffer is a no-op.
func (p *Packer) WriteBytes(buf []byte) error {
	if buf == nil {
		return ErrNullBuffer
	}

	// Fast path when the packer is byte aligned
	if p.bits%8 == 0 {
		p.buf = append(p.buf, buf...)
		p.bits += len(buf) * 8
		return nil
	}

	for _, b := range buf {
		for i := 7; i >= 0; i-- {
			p.writeBit((b >> uint(i)) & 1)
		}
	}

	return nil
}

func (p *Packer) writeBit(bit byte) {
	if p.bits%8 == 0 {
		p.buf = append(p.buf, 0)
	}
	p.buf[len(p.buf)-1] |= bit << uint(7-p.bits%8)
	p.bits++
}

// Len returns the number of bits written so far.
func (p *Packer) Len() int {
	return p.bits
}

// Bytes returns a copy of the packed buffer. A trailing partial byte is zero padded.
func (p *Packer) Bytes() []byte {
	return slices.Clone(p.buf)
}

// Reset discards all written bits.
func (p *Packer) Reset() {
	p.buf = p.buf[:0]
	p.bits = 0
}
