package modem

import (
	"errors"
	"fmt"

	"github.com/skypro1111/covertaudio/internal/bitio"
)

var (
	// ErrUnsupported is returned for parameter combinations a modem cannot serve.
	ErrUnsupported = errors.New("modem: unsupported parameters")

	// ErrNoChannels is returned when a frequency range holds no sub-channel.
	ErrNoChannels = errors.New("modem: no channel fits the frequency range")
)

// Params are the modulation parameters shared by both ends of a link.
type Params struct {
	BitsPerSymbol         int     `yaml:"bits_per_symbol" json:"bits_per_symbol"`
	SampleRate            float64 `yaml:"sample_rate" json:"sample_rate"`
	SamplesPerSymbol      int     `yaml:"samples_per_symbol" json:"samples_per_symbol"`
	SymbolExpansionFactor int     `yaml:"symbol_expansion_factor" json:"symbol_expansion_factor"`
	SeparationIntervals   int     `yaml:"separation_intervals" json:"separation_intervals"`
}

// ConstellationSize returns the number of distinct symbols.
func (p Params) ConstellationSize() int {
	return 1 << p.BitsPerSymbol
}

// SymbolLength returns the number of samples each symbol occupies on air,
// including the silent expansion.
func (p Params) SymbolLength() int {
	return p.SamplesPerSymbol * p.SymbolExpansionFactor
}

// Validate reports every invalid field at once.
func (p Params) Validate() error {
	var errs []error
	if p.BitsPerSymbol < 1 || p.BitsPerSymbol > bitio.MaxBitsPerSymbol {
		errs = append(errs, fmt.Errorf("bits_per_symbol must be between 1 and %d, got %d", bitio.MaxBitsPerSymbol, p.BitsPerSymbol))
	}
	if p.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be positive, got %g", p.SampleRate))
	}
	if p.SamplesPerSymbol < 2 {
		errs = append(errs, fmt.Errorf("samples_per_symbol must be at least 2, got %d", p.SamplesPerSymbol))
	}
	if p.SymbolExpansionFactor < 1 {
		errs = append(errs, fmt.Errorf("symbol_expansion_factor must be at least 1, got %d", p.SymbolExpansionFactor))
	}
	if p.SeparationIntervals < 1 {
		errs = append(errs, fmt.Errorf("separation_intervals must be at least 1, got %d", p.SeparationIntervals))
	}
	return errors.Join(errs...)
}

// binary checks that p describes a binary modem.
func (p Params) binary() error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.BitsPerSymbol != 1 {
		return fmt.Errorf("%w: binary FSK carries 1 bit per symbol, got %d", ErrUnsupported, p.BitsPerSymbol)
	}
	return nil
}
