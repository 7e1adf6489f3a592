package dsp

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
)

// directConvolutionLimit is the operation count below which direct convolution
// is used instead of the FFT.
const directConvolutionLimit = 1 << 15

// Convolve returns the linear convolution of a and b. The result holds
// len(a)+len(b) samples; the final sample is always zero.
func Convolve(a, b []float64) ([]float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, fmt.Errorf("%w: convolution operands must be non-empty", ErrEmptyInput)
	}

	if len(a)*len(b) <= directConvolutionLimit {
		return convolveDirect(a, b), nil
	}
	return convolveFFT(a, b), nil
}

func convolveDirect(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b))
	for i, x := range a {
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

func convolveFFT(a, b []float64) []float64 {
	n := NextPowerOfTwo(len(a) + len(b) - 1)
	fft := fourier.NewFFT(n)

	padded := make([]float64, n)
	copy(padded, a)
	ca := fft.Coefficients(nil, padded)

	clear(padded)
	copy(padded, b)
	cb := fft.Coefficients(nil, padded)

	for i := range ca {
		ca[i] *= cb[i]
	}
	seq := fft.Sequence(padded, ca)

	// Sequence is unnormalised
	scale := 1 / float64(n)
	out := make([]float64, len(a)+len(b))
	for i := 0; i < len(a)+len(b)-1; i++ {
		out[i] = seq[i] * scale
	}
	return out
}

// NextPowerOfTwo returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
