package codec

import (
	"fmt"

	"github.com/skypro1111/covertaudio/internal/bitio"
	"github.com/skypro1111/covertaudio/internal/dsp"
)

// GoldSpec selects the two m-sequences of a gold code.
type GoldSpec struct {
	Degree     int    `yaml:"degree"`
	GeneratorA uint32 `yaml:"generator_a"`
	SeedA      uint32 `yaml:"seed_a"`
	GeneratorB uint32 `yaml:"generator_b"`
	SeedB      uint32 `yaml:"seed_b"`
}

// DefaultGold is a preferred pair of degree 5 (x^5+x^2+1, x^5+x^4+x^3+x^2+1).
var DefaultGold = GoldSpec{
	Degree:     5,
	GeneratorA: 0b00101,
	SeedA:      0b00001,
	GeneratorB: 0b11101,
	SeedB:      0b00001,
}

// Scrambler whitens data by XOR with a repeating gold sequence. Scrambling and
// descrambling are the same operation and the length never changes.
type Scrambler struct {
	gold  GoldSpec
	chips *bitio.Packer
}

// NewScrambler precomputes one period of the gold sequence.
func NewScrambler(gold GoldSpec) (*Scrambler, error) {
	code, err := dsp.NewGoldCode(gold.Degree, gold.GeneratorA, gold.SeedA, gold.GeneratorB, gold.SeedB)
	if err != nil {
		return nil, fmt.Errorf("failed to create scrambler: %w", err)
	}

	// The period is rarely byte aligned, so keep exact bit length in a packer
	chips := bitio.NewPacker()
	for i := 0; i < code.Period(); i++ {
		if err := chips.WriteBits(uint64(code.Bit()), 1); err != nil {
			return nil, err
		}
	}

	return &Scrambler{gold: gold, chips: chips}, nil
}

func (s *Scrambler) Name() string       { return "scrambler" }
func (s *Scrambler) BlockLength() int   { return 8 }
func (s *Scrambler) MessageLength() int { return 8 }

// Encode XORs data with the sequence, restarting it at the first byte.
func (s *Scrambler) Encode(data []byte) ([]byte, error) {
	sequence := bitio.NewPackerStream(s.chips, true)
	out := make([]byte, len(data))
	for i, b := range data {
		chips, _, err := sequence.ReadUint(8)
		if err != nil {
			return nil, err
		}
		out[i] = b ^ byte(chips)
	}
	return out, nil
}

// Decode reverses Encode. The error mask passes through unchanged.
func (s *Scrambler) Decode(data []byte, mask ErrorMask) (Result, error) {
	out, err := s.Encode(data)
	if err != nil {
		return Result{}, err
	}

	errs := make(ErrorMask, len(out))
	copy(errs, mask)

	return Result{Data: out, Errors: errs, Report: Report{Codec: s.Name(), FlaggedSymbols: errs.Count()}}, nil
}
