package dsp

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/dsp/window"
)

var (
	// ErrInvalidFilter is returned when filter band edges or attenuations are inconsistent.
	ErrInvalidFilter = errors.New("dsp: invalid filter parameters")

	// ErrEmptyInput is returned when a primitive is given an empty sequence.
	ErrEmptyInput = errors.New("dsp: empty input")
)

// Filter is a linear-phase FIR filter designed with a Kaiser window.
type Filter struct {
	taps       []float64
	sampleRate float64
}

// DesignBandpass designs a Kaiser bandpass filter. Band edges are in Hz and must
// satisfy 0 <= stop1 < pass1 < pass2 < stop2 <= sampleRate/2. Attenuations are in dB.
func DesignBandpass(stop1, pass1, pass2, stop2, passAtten, stopAtten, sampleRate float64) (*Filter, error) {
	if !(stop1 >= 0 && stop1 < pass1 && pass1 < pass2 && pass2 < stop2) {
		return nil, fmt.Errorf("%w: bandpass edges must be strictly increasing, got %g/%g/%g/%g",
			ErrInvalidFilter, stop1, pass1, pass2, stop2)
	}
	if stop2 > sampleRate/2 {
		return nil, fmt.Errorf("%w: upper stopband %g exceeds Nyquist %g", ErrInvalidFilter, stop2, sampleRate/2)
	}
	if err := checkAttenuation(passAtten, stopAtten); err != nil {
		return nil, err
	}

	// The narrower transition decides the order
	width := math.Min(pass1-stop1, stop2-pass2)
	n, beta := kaiserOrder(width, passAtten, stopAtten, sampleRate)

	wa := 2 * math.Pi * (pass1 - width/2) / sampleRate
	wb := 2 * math.Pi * (pass2 + width/2) / sampleRate

	taps := make([]float64, n)
	m := (n - 1) / 2
	for i := range taps {
		k := float64(i - m)
		if k == 0 {
			taps[i] = (wb - wa) / math.Pi
			continue
		}
		taps[i] = (math.Sin(wb*k) - math.Sin(wa*k)) / (math.Pi * k)
	}
	window.NewValues(kaiser(beta), n).Transform(taps)

	return &Filter{taps: taps, sampleRate: sampleRate}, nil
}

// DesignLowpass designs a Kaiser lowpass filter with 0 < pass < stop <= sampleRate/2.
func DesignLowpass(pass, stop, passAtten, stopAtten, sampleRate float64) (*Filter, error) {
	if !(pass > 0 && pass < stop) {
		return nil, fmt.Errorf("%w: lowpass edges must satisfy 0 < pass < stop, got %g/%g", ErrInvalidFilter, pass, stop)
	}
	if stop > sampleRate/2 {
		return nil, fmt.Errorf("%w: stopband %g exceeds Nyquist %g", ErrInvalidFilter, stop, sampleRate/2)
	}
	if err := checkAttenuation(passAtten, stopAtten); err != nil {
		return nil, err
	}

	width := stop - pass
	n, beta := kaiserOrder(width, passAtten, stopAtten, sampleRate)
	wc := 2 * math.Pi * (pass + width/2) / sampleRate

	taps := make([]float64, n)
	m := (n - 1) / 2
	for i := range taps {
		k := float64(i - m)
		if k == 0 {
			taps[i] = wc / math.Pi
			continue
		}
		taps[i] = math.Sin(wc*k) / (math.Pi * k)
	}
	window.NewValues(kaiser(beta), n).Transform(taps)

	return &Filter{taps: taps, sampleRate: sampleRate}, nil
}

func checkAttenuation(passAtten, stopAtten float64) error {
	if passAtten <= 0 || stopAtten <= 0 {
		return fmt.Errorf("%w: attenuations must be positive, got %g/%g dB", ErrInvalidFilter, passAtten, stopAtten)
	}
	return nil
}

// kaiserOrder returns an odd filter length and the window shape parameter for
// the given transition width and ripple targets.
func kaiserOrder(width, passAtten, stopAtten, sampleRate float64) (int, float64) {
	gain := math.Pow(10, passAtten/20)
	deltaPass := (gain - 1) / (gain + 1)
	deltaStop := math.Pow(10, -stopAtten/20)
	a := -20 * math.Log10(math.Min(deltaPass, deltaStop))

	d := 0.922
	if a > 21 {
		d = (a - 7.95) / 14.36
	}

	var beta float64
	switch {
	case a > 50:
		beta = 0.1102 * (a - 8.7)
	case a > 21:
		beta = 0.5842*math.Pow(a-21, 0.4) + 0.07886*(a-21)
	}

	n := int(math.Ceil(d*sampleRate/width + 1))
	if n%2 == 0 {
		n++
	}
	return n, beta
}

// kaiser returns a Kaiser window of shape beta usable with window.NewValues.
func kaiser(beta float64) func([]float64) []float64 {
	return func(seq []float64) []float64 {
		if len(seq) < 2 {
			return seq
		}
		m := float64(len(seq)-1) / 2
		norm := besselI0(beta)
		for i := range seq {
			r := (float64(i) - m) / m
			seq[i] *= besselI0(beta*math.Sqrt(1-r*r)) / norm
		}
		return seq
	}
}

// besselI0 evaluates the zeroth order modified Bessel function of the first kind.
func besselI0(x float64) float64 {
	sum, term := 1.0, 1.0
	half := x / 2
	for k := 1; k < 500; k++ {
		term *= half / float64(k)
		t := term * term
		sum += t
		if t < sum*1e-16 {
			break
		}
	}
	return sum
}

// Taps returns a copy of the filter coefficients.
func (f *Filter) Taps() []float64 {
	return slices.Clone(f.taps)
}

// Len returns the number of taps.
func (f *Filter) Len() int {
	return len(f.taps)
}

// SampleRate returns the rate the filter was designed for.
func (f *Filter) SampleRate() float64 {
	return f.sampleRate
}

// GroupDelay returns the delay in samples introduced by the filter.
func (f *Filter) GroupDelay() int {
	return (len(f.taps) - 1) / 2
}

// Apply convolves x with the filter. The output has len(x)+Len() samples and
// is delayed by GroupDelay.
func (f *Filter) Apply(x []float64) ([]float64, error) {
	return Convolve(x, f.taps)
}

// ApplyAligned filters x and removes the group delay, returning len(x) samples
// time aligned with the input.
func (f *Filter) ApplyAligned(x []float64) ([]float64, error) {
	y, err := f.Apply(x)
	if err != nil {
		return nil, err
	}
	delay := f.GroupDelay()
	return y[delay : delay+len(x)], nil
}
