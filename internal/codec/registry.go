package codec

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
)

// Spec is the tagged configuration of one codec.
type Spec struct {
	Kind          string              `yaml:"kind"`
	BlockLength   int                 `yaml:"block_length,omitempty"`
	MessageLength int                 `yaml:"message_length,omitempty"`
	Uncorrectable UncorrectablePolicy `yaml:"uncorrectable,omitempty"`
	Gold          *GoldSpec           `yaml:"gold,omitempty"`
}

type constructor func(Spec) (Codec, error)

var registry = map[string]constructor{
	"manchester": func(Spec) (Codec, error) {
		return NewManchester(), nil
	},
	"reed_solomon": func(s Spec) (Codec, error) {
		return NewReedSolomon(s.BlockLength, s.MessageLength, s.Uncorrectable)
	},
	"scrambler": func(s Spec) (Codec, error) {
		gold := DefaultGold
		if s.Gold != nil {
			gold = *s.Gold
		}
		return NewScrambler(gold)
	},
}

// Kinds returns the registered codec kinds.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// New builds the codec described by spec.
func New(spec Spec) (Codec, error) {
	build, ok := registry[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("%w %q (expected one of %v)", ErrUnknownKind, spec.Kind, Kinds())
	}
	return build(spec)
}

// Validate checks spec by constructing it.
func (s Spec) Validate() error {
	_, err := New(s)
	return err
}

// Chain applies codecs in order when encoding and in reverse order when
// decoding, threading one error mask through every stage.
type Chain struct {
	codecs []Codec
	logger *slog.Logger
}

// ChainResult is the output of Chain.Decode.
type ChainResult struct {
	Data    []byte
	Errors  ErrorMask
	Reports []Report
}

// UncorrectableBlocks returns the total number of uncorrectable blocks across stages.
func (r ChainResult) UncorrectableBlocks() int {
	n := 0
	for _, rep := range r.Reports {
		n += len(rep.Uncorrectable())
	}
	return n
}

// NewChain builds every codec in specs.
func NewChain(specs []Spec, logger *slog.Logger) (*Chain, error) {
	codecs := make([]Codec, 0, len(specs))
	var errs []error
	for i, spec := range specs {
		c, err := New(spec)
		if err != nil {
			errs = append(errs, fmt.Errorf("codec %d: %w", i, err))
			continue
		}
		codecs = append(codecs, c)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &Chain{codecs: codecs, logger: logger}, nil
}

// Codecs returns the chain's codecs in encode order.
func (c *Chain) Codecs() []Codec {
	return slices.Clone(c.codecs)
}

// Encode runs data through every codec in order.
func (c *Chain) Encode(data []byte) ([]byte, error) {
	out := data
	for _, codec := range c.codecs {
		encoded, err := codec.Encode(out)
		if err != nil {
			return nil, fmt.Errorf("%s encode: %w", codec.Name(), err)
		}
		c.logger.Debug("Encoded payload",
			slog.String("codec", codec.Name()),
			slog.Int("input_bytes", len(out)),
			slog.Int("output_bytes", len(encoded)),
		)
		out = encoded
	}
	return out, nil
}

// Decode undoes Encode. mask may be nil.
func (c *Chain) Decode(data []byte, mask ErrorMask) (ChainResult, error) {
	result := ChainResult{Data: data, Errors: mask}
	for i := len(c.codecs) - 1; i >= 0; i-- {
		codec := c.codecs[i]
		decoded, err := codec.Decode(result.Data, result.Errors)
		if err != nil {
			return ChainResult{}, fmt.Errorf("%s decode: %w", codec.Name(), err)
		}

		if decoded.Report.FlaggedSymbols > 0 || len(decoded.Report.Uncorrectable()) > 0 {
			c.logger.Warn("Decoder flagged symbols",
				slog.String("codec", codec.Name()),
				slog.Int("flagged_symbols", decoded.Report.FlaggedSymbols),
				slog.Any("uncorrectable_blocks", decoded.Report.Uncorrectable()),
			)
		}

		result.Data = decoded.Data
		result.Errors = decoded.Errors
		result.Reports = append(result.Reports, decoded.Report)
	}
	return result, nil
}
