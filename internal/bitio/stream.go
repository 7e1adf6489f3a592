package bitio

import (
	"fmt"
	"slices"
)

// Stream is a read cursor over a byte buffer or over a Packer.
//
// In linear mode a read past the end returns the bits that were left together
// with ErrShortRead. In circular mode reads wrap around the buffer, producing an
// infinitely repeating sequence.
type Stream struct {
	data     []byte
	packer   *Packer
	circular bool
	offset   int
}

// NewStream creates a stream over data. The buffer is not copied.
func NewStream(data []byte, circular bool) *Stream {
	return &Stream{data: data, circular: circular}
}

// NewPackerStream creates a stream that observes p. Bits written to p after the
// stream is created are visible to subsequent reads.
func NewPackerStream(p *Packer, circular bool) *Stream {
	return &Stream{packer: p, circular: circular}
}

func (s *Stream) source() ([]byte, int) {
	if s.packer != nil {
		return s.packer.buf, s.packer.bits
	}
	return s.data, len(s.data) * 8
}

// Circular reports whether the stream wraps.
func (s *Stream) Circular() bool {
	return s.circular
}

// ReadBits reads up to n bits and returns them MSB-aligned in a buffer of
// ceil(read/8) bytes along with the number of bits actually read.
func (s *Stream) ReadBits(n int) (int, []byte, error) {
	if n <= 0 {
		return 0, nil, fmt.Errorf("%w: %d", ErrInvalidWidth, n)
	}

	buf, total := s.source()
	if total == 0 {
		return 0, []byte{}, ErrShortRead
	}

	out := make([]byte, (n+7)/8)
	read := 0
	for read < n {
		if s.offset >= total {
			if !s.circular {
				break
			}
			s.offset = 0
		}

		bit := (buf[s.offset/8] >> uint(7-s.offset%8)) & 1
		out[read/8] |= bit << uint(7-read%8)

		read++
		s.offset++
	}

	if s.circular && s.offset >= total {
		s.offset = 0
	}

	if read < n {
		return read, out[:(read+7)/8], ErrShortRead
	}

	return read, out, nil
}

// ReadUint reads up to n bits (n <= 32) and returns them right-aligned.
func (s *Stream) ReadUint(n int) (uint32, int, error) {
	if n <= 0 || n > 32 {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidWidth, n)
	}

	read, buf, err := s.ReadBits(n)
	if read == 0 {
		return 0, 0, err
	}

	var value uint64
	for _, b := range buf {
		value = value<<8 | uint64(b)
	}
	value >>= uint(len(buf)*8 - read)

	return uint32(value), read, err
}

// Peek returns the read offset, the write offset (both in bits) and a snapshot
// of the underlying buffer without consuming anything.
func (s *Stream) Peek() (readOffset, writeOffset int, snapshot []byte) {
	buf, total := s.source()
	return s.offset, total, slices.Clone(buf[:(total+7)/8])
}

// Remaining returns the number of unread bits. bounded is false for circular
// streams, which never run out.
func (s *Stream) Remaining() (bits int, bounded bool) {
	if s.circular {
		return 0, false
	}
	_, total := s.source()
	return total - s.offset, true
}
