package modem

import (
	"errors"
	"fmt"
	"slices"
)

// Kinds of modem.
const (
	KindBFSK = "bfsk"
	KindOFDM = "ofdm"
	KindFHSS = "fhss"
)

// ErrUnknownKind is returned for a modem kind with no registered constructor.
var ErrUnknownKind = errors.New("modem: unknown kind")

// Spec selects a modem and its frequencies. The same Spec must be used on both
// ends of a link; Detector only matters to demodulators.
type Spec struct {
	Kind string `yaml:"kind" json:"kind"`

	// CarrierFrequency is used by bfsk.
	CarrierFrequency float64 `yaml:"carrier_frequency" json:"carrier_frequency,omitempty"`

	// The multi-carrier kinds tile [MinimumFrequency, MaximumFrequency] with
	// channels of the BFSK bandwidth divided by BandwidthDivisor.
	MinimumFrequency float64 `yaml:"minimum_frequency" json:"minimum_frequency,omitempty"`
	MaximumFrequency float64 `yaml:"maximum_frequency" json:"maximum_frequency,omitempty"`
	BandwidthDivisor float64 `yaml:"bandwidth_divisor" json:"bandwidth_divisor,omitempty"`

	Detector Detector `yaml:"detector" json:"detector"`
}

type constructors struct {
	modulator   func(Params, Spec, Options) (Modulator, error)
	demodulator func(Params, Spec, Options) (Demodulator, error)
}

var registry = map[string]constructors{
	KindBFSK: {
		modulator: func(p Params, s Spec, _ Options) (Modulator, error) {
			return NewBFSKModulator(p, s.CarrierFrequency)
		},
		demodulator: func(p Params, s Spec, o Options) (Demodulator, error) {
			return NewBFSKDemodulator(p, s.CarrierFrequency, s.Detector, o)
		},
	},
	KindOFDM: {
		modulator: func(p Params, s Spec, o Options) (Modulator, error) {
			return NewOFDMModulator(p, s.MinimumFrequency, s.MaximumFrequency, s.BandwidthDivisor, o)
		},
		demodulator: func(p Params, s Spec, o Options) (Demodulator, error) {
			return NewOFDMDemodulator(p, s.MinimumFrequency, s.MaximumFrequency, s.BandwidthDivisor, s.Detector, o)
		},
	},
	KindFHSS: {
		modulator: func(p Params, s Spec, o Options) (Modulator, error) {
			return NewFHSSModulator(p, s.MinimumFrequency, s.MaximumFrequency, s.BandwidthDivisor, o)
		},
		demodulator: func(p Params, s Spec, o Options) (Demodulator, error) {
			return NewFHSSDemodulator(p, s.MinimumFrequency, s.MaximumFrequency, s.BandwidthDivisor, s.Detector, o)
		},
	},
}

// Kinds lists the registered modem kinds.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// MultiCarrier reports whether kind spreads symbols over parallel channels,
// in which case the receiver synchronises every channel separately.
func MultiCarrier(kind string) bool {
	return kind == KindOFDM
}

// Validate reports every invalid field of s for the given parameters.
func (s Spec) Validate(params Params) error {
	if _, ok := registry[s.Kind]; !ok {
		return fmt.Errorf("kind must be one of %v, got '%s'", Kinds(), s.Kind)
	}

	var errs []error
	switch s.Kind {
	case KindBFSK:
		if s.CarrierFrequency <= 0 || s.CarrierFrequency >= params.SampleRate/2 {
			errs = append(errs, fmt.Errorf("carrier_frequency must be between 0 and %g Hz, got %g", params.SampleRate/2, s.CarrierFrequency))
		}
	default:
		if s.MinimumFrequency <= 0 {
			errs = append(errs, fmt.Errorf("minimum_frequency must be positive, got %g", s.MinimumFrequency))
		}
		if s.MaximumFrequency <= s.MinimumFrequency || s.MaximumFrequency > params.SampleRate/2 {
			errs = append(errs, fmt.Errorf("maximum_frequency must be between minimum_frequency (%g) and %g Hz, got %g",
				s.MinimumFrequency, params.SampleRate/2, s.MaximumFrequency))
		}
		if s.BandwidthDivisor <= 0 {
			errs = append(errs, fmt.Errorf("bandwidth_divisor must be positive, got %g", s.BandwidthDivisor))
		}
	}
	if err := s.Detector.Validate(params); err != nil {
		errs = append(errs, fmt.Errorf("detector: %w", err))
	}

	return errors.Join(errs...)
}

// NewModulator builds the modulator selected by spec.
func NewModulator(params Params, spec Spec, opts Options) (Modulator, error) {
	c, ok := registry[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
	return c.modulator(params, spec, opts)
}

// NewDemodulator builds the demodulator selected by spec.
func NewDemodulator(params Params, spec Spec, opts Options) (Demodulator, error) {
	c, ok := registry[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
	return c.demodulator(params, spec, opts)
}
