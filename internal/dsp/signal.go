package dsp

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Upsample2x zero-stuffs x, doubling its rate.
func Upsample2x(x []float64) []float64 {
	out := make([]float64, 2*len(x))
	for i, v := range x {
		out[2*i] = v
	}
	return out
}

// Interpolate2x zero-stuffs x and removes the spectral images with lowpass,
// which must be designed for twice the rate of x.
func Interpolate2x(x []float64, lowpass *Filter) ([]float64, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("%w: nothing to interpolate", ErrEmptyInput)
	}
	return lowpass.ApplyAligned(Upsample2x(x))
}

// Square returns x squared sample-wise.
func Square(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v * v
	}
	return out
}

// Decimate keeps every factor-th sample of x starting with the first.
func Decimate(x []float64, factor int) []float64 {
	if factor <= 1 {
		return slices.Clone(x)
	}
	out := make([]float64, 0, (len(x)+factor-1)/factor)
	for i := 0; i < len(x); i += factor {
		out = append(out, x[i])
	}
	return out
}

// Peak returns the largest absolute value in x.
func Peak(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return math.Max(math.Abs(floats.Max(x)), math.Abs(floats.Min(x)))
}

// Normalize scales x into [-1, 1] by its peak magnitude. An all-zero signal is
// returned unchanged.
func Normalize(x []float64) []float64 {
	out := slices.Clone(x)
	if peak := Peak(out); peak > 0 {
		floats.Scale(1/peak, out)
	}
	return out
}

// RemoveBias subtracts the mean of x.
func RemoveBias(x []float64) []float64 {
	out := slices.Clone(x)
	if len(out) == 0 {
		return out
	}
	floats.AddConst(-floats.Sum(out)/float64(len(out)), out)
	return out
}

// MovingAverage returns the causal moving average of x over window samples.
// Samples before the start of x count as zero.
func MovingAverage(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	if window <= 0 {
		return out
	}

	var sum float64
	for i, v := range x {
		sum += v
		if i >= window {
			sum -= x[i-window]
		}
		out[i] = sum / float64(window)
	}
	return out
}

// Bipolar maps symbol 0 to -1 and every other symbol to +1.
func Bipolar(symbols []uint8) []float64 {
	out := make([]float64, len(symbols))
	for i, s := range symbols {
		if s == 0 {
			out[i] = -1
		} else {
			out[i] = 1
		}
	}
	return out
}

// MergeBySign combines two normalised envelopes into one signed track. Branch 0
// is kept positive, branch 1 is negated, and at each index the branch with the
// larger magnitude wins; ties go to branch 0.
func MergeBySign(branch0, branch1 []float64) []float64 {
	n := min(len(branch0), len(branch1))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		a, b := branch0[i], -branch1[i]
		if math.Abs(b) > math.Abs(a) {
			out[i] = b
		} else {
			out[i] = a
		}
	}
	return out
}

// MaxMagnitude returns, for every index, the largest absolute value across the
// given signals. The result is as long as the shortest signal.
func MaxMagnitude(signals ...[]float64) []float64 {
	if len(signals) == 0 {
		return nil
	}
	n := len(signals[0])
	for _, s := range signals[1:] {
		n = min(n, len(s))
	}

	out := make([]float64, n)
	for _, s := range signals {
		for i := 0; i < n; i++ {
			out[i] = math.Max(out[i], math.Abs(s[i]))
		}
	}
	return out
}

// Sum adds signals sample-wise, zero-padding the shorter ones to the longest.
func Sum(signals ...[]float64) []float64 {
	n := 0
	for _, s := range signals {
		n = max(n, len(s))
	}

	out := make([]float64, n)
	for _, s := range signals {
		floats.Add(out[:len(s)], s)
	}
	return out
}
