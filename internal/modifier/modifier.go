package modifier

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/skypro1111/covertaudio/internal/dsp"
)

// Kinds of modifier.
const (
	KindBandpass = "bandpass"
	KindLowpass  = "lowpass"
)

// ErrUnknownKind is returned for a modifier kind with no registered constructor.
var ErrUnknownKind = errors.New("modifier: unknown kind")

// Modifier transforms a signal. Offset is the number of leading samples the
// receiver drops after Modify to undo the delay it introduces.
type Modifier interface {
	Name() string
	Modify(samples []float64) ([]float64, error)
	Offset() int
}

// Spec configures a modifier. Frequencies are in Hz, attenuations in dB.
type Spec struct {
	Kind string `yaml:"kind" json:"kind"`

	// Bandpass edges.
	FirstStopband  float64 `yaml:"first_stopband" json:"first_stopband,omitempty"`
	FirstPassband  float64 `yaml:"first_passband" json:"first_passband,omitempty"`
	SecondPassband float64 `yaml:"second_passband" json:"second_passband,omitempty"`
	SecondStopband float64 `yaml:"second_stopband" json:"second_stopband,omitempty"`

	// Lowpass edges.
	Passband float64 `yaml:"passband" json:"passband,omitempty"`
	Stopband float64 `yaml:"stopband" json:"stopband,omitempty"`

	PassbandAttenuation float64 `yaml:"passband_attenuation" json:"passband_attenuation"`
	StopbandAttenuation float64 `yaml:"stopband_attenuation" json:"stopband_attenuation"`
}

// Validate checks the fields of s that do not depend on the sample rate.
func (s Spec) Validate() error {
	var errs []error
	switch s.Kind {
	case KindBandpass:
		if !(s.FirstStopband >= 0 && s.FirstStopband < s.FirstPassband &&
			s.FirstPassband < s.SecondPassband && s.SecondPassband < s.SecondStopband) {
			errs = append(errs, fmt.Errorf("bandpass edges must be strictly increasing, got %g/%g/%g/%g",
				s.FirstStopband, s.FirstPassband, s.SecondPassband, s.SecondStopband))
		}
	case KindLowpass:
		if !(s.Passband > 0 && s.Passband < s.Stopband) {
			errs = append(errs, fmt.Errorf("lowpass edges must satisfy 0 < passband < stopband, got %g/%g", s.Passband, s.Stopband))
		}
	default:
		return fmt.Errorf("kind must be one of %v, got '%s'", Kinds(), s.Kind)
	}

	if s.PassbandAttenuation <= 0 {
		errs = append(errs, fmt.Errorf("passband_attenuation must be positive, got %g", s.PassbandAttenuation))
	}
	if s.StopbandAttenuation <= 0 {
		errs = append(errs, fmt.Errorf("stopband_attenuation must be positive, got %g", s.StopbandAttenuation))
	}
	return errors.Join(errs...)
}

// Filter is a modifier backed by a Kaiser FIR filter.
type Filter struct {
	name   string
	filter *dsp.Filter
}

// NewBandpass builds a bandpass modifier.
func NewBandpass(spec Spec, sampleRate float64) (*Filter, error) {
	f, err := dsp.DesignBandpass(spec.FirstStopband, spec.FirstPassband, spec.SecondPassband, spec.SecondStopband,
		spec.PassbandAttenuation, spec.StopbandAttenuation, sampleRate)
	if err != nil {
		return nil, err
	}
	return &Filter{name: KindBandpass, filter: f}, nil
}

// NewLowpass builds a lowpass modifier.
func NewLowpass(spec Spec, sampleRate float64) (*Filter, error) {
	f, err := dsp.DesignLowpass(spec.Passband, spec.Stopband, spec.PassbandAttenuation, spec.StopbandAttenuation, sampleRate)
	if err != nil {
		return nil, err
	}
	return &Filter{name: KindLowpass, filter: f}, nil
}

func (f *Filter) Name() string {
	return f.name
}

// Modify returns the full convolution, delayed by Offset samples.
func (f *Filter) Modify(samples []float64) ([]float64, error) {
	return f.filter.Apply(samples)
}

// Offset returns the group delay of the filter.
func (f *Filter) Offset() int {
	return f.filter.GroupDelay()
}

var registry = map[string]func(Spec, float64) (Modifier, error){
	KindBandpass: func(s Spec, fs float64) (Modifier, error) { return NewBandpass(s, fs) },
	KindLowpass:  func(s Spec, fs float64) (Modifier, error) { return NewLowpass(s, fs) },
}

// Kinds lists the registered modifier kinds.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// New builds the modifier selected by spec.
func New(spec Spec, sampleRate float64) (Modifier, error) {
	build, ok := registry[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
	return build(spec, sampleRate)
}

// Chain applies modifiers in order.
type Chain struct {
	modifiers []Modifier
	logger    *slog.Logger
}

// NewChain builds every modifier in specs, reporting all failures together.
func NewChain(specs []Spec, sampleRate float64, logger *slog.Logger) (*Chain, error) {
	c := &Chain{logger: logger}
	var errs []error
	for i, spec := range specs {
		m, err := New(spec, sampleRate)
		if err != nil {
			errs = append(errs, fmt.Errorf("modifier %d (%s): %w", i, spec.Kind, err))
			continue
		}
		c.modifiers = append(c.modifiers, m)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// Len returns the number of modifiers.
func (c *Chain) Len() int {
	return len(c.modifiers)
}

// Apply runs samples through every modifier. With trim set, each modifier's
// Offset is dropped from the front of its output, as the receiver does.
func (c *Chain) Apply(samples []float64, trim bool) ([]float64, error) {
	for _, m := range c.modifiers {
		out, err := m.Modify(samples)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Name(), err)
		}
		if trim {
			out = out[min(m.Offset(), len(out)):]
		}
		c.logger.Debug("Applied modifier",
			slog.String("modifier", m.Name()),
			slog.Int("offset", m.Offset()),
			slog.Int("samples", len(out)))
		samples = out
	}
	return samples, nil
}
