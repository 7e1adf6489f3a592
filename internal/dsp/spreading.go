package dsp

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/skypro1111/covertaudio/internal/bitio"
)

// ErrInvalidSpreadingCode is returned for unusable LFSR parameters.
var ErrInvalidSpreadingCode = errors.New("dsp: invalid spreading code")

// SpreadingCode is a Fibonacci LFSR producing a PN sequence. With a primitive
// generator polynomial it yields an m-sequence of period 2^degree-1.
//
// The generator holds the taps g_0..g_{degree-1} in bits 0..degree-1; g_degree is
// implicit. The output bit is bit 0 of the state.
type SpreadingCode struct {
	degree    int
	generator uint32
	state     uint32
	initial   uint32
}

// NewSpreadingCode validates the polynomial and seed and returns a generator.
func NewSpreadingCode(degree int, generator, seed uint32) (*SpreadingCode, error) {
	if degree < 2 || degree > 32 {
		return nil, fmt.Errorf("%w: degree must be between 2 and 32, got %d", ErrInvalidSpreadingCode, degree)
	}

	mask := degreeMask(degree)
	if generator&1 == 0 {
		return nil, fmt.Errorf("%w: generator %#x must have g0 set", ErrInvalidSpreadingCode, generator)
	}
	if generator&^mask != 0 {
		return nil, fmt.Errorf("%w: generator %#x has taps above degree %d", ErrInvalidSpreadingCode, generator, degree)
	}
	if seed == 0 || seed&^mask != 0 {
		return nil, fmt.Errorf("%w: seed %#x must be non-zero and fit in %d bits", ErrInvalidSpreadingCode, seed, degree)
	}

	return &SpreadingCode{
		degree:    degree,
		generator: generator,
		state:     seed,
		initial:   seed,
	}, nil
}

func degreeMask(degree int) uint32 {
	if degree == 32 {
		return ^uint32(0)
	}
	return 1<<uint(degree) - 1
}

// Degree returns the number of LFSR stages.
func (c *SpreadingCode) Degree() int {
	return c.degree
}

// Period returns the m-sequence length 2^degree-1.
func (c *SpreadingCode) Period() int {
	return int(uint64(1)<<uint(c.degree) - 1)
}

// Bit returns the next chip.
func (c *SpreadingCode) Bit() uint8 {
	out := uint8(c.state & 1)
	feedback := uint32(bits.OnesCount32(c.state&c.generator) & 1)
	c.state = c.state>>1 | feedback<<uint(c.degree-1)
	return out
}

// Bits returns the next n chips packed MSB first.
func (c *SpreadingCode) Bits(n int) ([]byte, error) {
	return packChips(n, c.Bit)
}

// Reset rewinds the generator to its seed.
func (c *SpreadingCode) Reset() {
	c.state = c.initial
}

// GoldCode is the XOR of two m-sequences of the same degree. Preferred pairs
// give a family of sequences with bounded cross-correlation.
type GoldCode struct {
	a, b *SpreadingCode
}

// NewGoldCode builds a gold code generator from two LFSR definitions.
func NewGoldCode(degree int, generatorA, seedA, generatorB, seedB uint32) (*GoldCode, error) {
	a, err := NewSpreadingCode(degree, generatorA, seedA)
	if err != nil {
		return nil, fmt.Errorf("first sequence: %w", err)
	}
	b, err := NewSpreadingCode(degree, generatorB, seedB)
	if err != nil {
		return nil, fmt.Errorf("second sequence: %w", err)
	}
	return &GoldCode{a: a, b: b}, nil
}

// Period returns the length of the gold sequence.
func (g *GoldCode) Period() int {
	return g.a.Period()
}

// Bit returns the next chip.
func (g *GoldCode) Bit() uint8 {
	return g.a.Bit() ^ g.b.Bit()
}

// Bits returns the next n chips packed MSB first.
func (g *GoldCode) Bits(n int) ([]byte, error) {
	return packChips(n, g.Bit)
}

// Reset rewinds both generators.
func (g *GoldCode) Reset() {
	g.a.Reset()
	g.b.Reset()
}

func packChips(n int, next func() uint8) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: chip count must be positive, got %d", ErrInvalidSpreadingCode, n)
	}

	packer := bitio.NewPacker()
	for i := 0; i < n; i++ {
		if err := packer.WriteBits(uint64(next()), 1); err != nil {
			return nil, err
		}
	}
	return packer.Bytes(), nil
}
