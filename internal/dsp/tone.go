package dsp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// SynthesizeTones generates length samples containing the given frequencies.
// The spectrum is built on the next power of two at or above length with one
// bin per tone and converted with an inverse real FFT, so each frequency is
// rounded to the nearest sampleRate/N bin. The result is peak normalised.
func SynthesizeTones(length int, sampleRate float64, frequencies []float64) ([]float64, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: tone length must be positive, got %d", ErrEmptyInput, length)
	}
	if len(frequencies) == 0 {
		return nil, fmt.Errorf("%w: no tone frequencies", ErrEmptyInput)
	}

	n := NextPowerOfTwo(length)
	coeff := make([]complex128, n/2+1)
	for _, f := range frequencies {
		if f < 0 || f > sampleRate/2 {
			return nil, fmt.Errorf("%w: tone %g Hz outside [0, %g]", ErrInvalidFrequency, f, sampleRate/2)
		}
		bin := int(math.Round(f * float64(n) / sampleRate))
		coeff[bin] += 1
	}

	seq := fourier.NewFFT(n).Sequence(nil, coeff)

	return Normalize(seq[:length]), nil
}
