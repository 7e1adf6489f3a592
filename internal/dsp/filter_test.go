package dsp

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func sine(freq, sampleRate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	return out
}

// steadyPeak measures the peak of y away from the filter start-up transients.
func steadyPeak(y []float64, margin int) float64 {
	return Peak(y[margin : len(y)-margin])
}

func TestDesignLowpassResponse(t *testing.T) {
	const fs = 8000.0
	f, err := DesignLowpass(1000, 2000, 0.1, 80, fs)
	if err != nil {
		t.Fatalf("DesignLowpass failed: %v", err)
	}

	if f.Len()%2 != 1 {
		t.Errorf("Expected odd filter length, got %d", f.Len())
	}
	if f.GroupDelay() != (f.Len()-1)/2 {
		t.Errorf("Expected group delay %d, got %d", (f.Len()-1)/2, f.GroupDelay())
	}

	pass, err := f.ApplyAligned(sine(500, fs, 4000))
	if err != nil {
		t.Fatal(err)
	}
	if len(pass) != 4000 {
		t.Errorf("Expected aligned output of 4000 samples, got %d", len(pass))
	}
	if gain := steadyPeak(pass, 200); math.Abs(gain-1) > 0.02 {
		t.Errorf("Expected passband gain near 1, got %f", gain)
	}

	stop, err := f.ApplyAligned(sine(3000, fs, 4000))
	if err != nil {
		t.Fatal(err)
	}
	if gain := steadyPeak(stop, 200); gain > 1e-3 {
		t.Errorf("Expected stopband gain below 1e-3, got %g", gain)
	}
}

func TestDesignBandpassResponse(t *testing.T) {
	const fs = 16000.0
	f, err := DesignBandpass(1000, 1500, 2500, 3000, 0.1, 80, fs)
	if err != nil {
		t.Fatalf("DesignBandpass failed: %v", err)
	}

	tests := []struct {
		freq    float64
		minGain float64
		maxGain float64
	}{
		{freq: 2000, minGain: 0.98, maxGain: 1.02},
		{freq: 500, minGain: 0, maxGain: 1e-3},
		{freq: 4000, minGain: 0, maxGain: 1e-3},
	}

	for _, tt := range tests {
		y, err := f.ApplyAligned(sine(tt.freq, fs, 8000))
		if err != nil {
			t.Fatal(err)
		}
		gain := steadyPeak(y, 400)
		if gain < tt.minGain || gain > tt.maxGain {
			t.Errorf("%g Hz: expected gain in [%g, %g], got %g", tt.freq, tt.minGain, tt.maxGain, gain)
		}
	}

	full, err := f.Apply(make([]float64, 100))
	if err != nil {
		t.Fatal(err)
	}
	if len(full) != 100+f.Len() {
		t.Errorf("Expected full convolution length %d, got %d", 100+f.Len(), len(full))
	}
}

func TestDesignFilterRejectsBadEdges(t *testing.T) {
	bandpass := []struct {
		name                       string
		stop1, pass1, pass2, stop2 float64
		rate                       float64
	}{
		{"not increasing", 1000, 900, 2000, 2500, 8000},
		{"empty passband", 1000, 1500, 1500, 2000, 8000},
		{"above nyquist", 1000, 1500, 2500, 4500, 8000},
	}
	for _, tt := range bandpass {
		if _, err := DesignBandpass(tt.stop1, tt.pass1, tt.pass2, tt.stop2, 0.1, 80, tt.rate); !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("%s: expected ErrInvalidFilter, got %v", tt.name, err)
		}
	}

	if _, err := DesignLowpass(2000, 1000, 0.1, 80, 8000); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("Expected ErrInvalidFilter for pass >= stop, got %v", err)
	}
	if _, err := DesignLowpass(1000, 5000, 0.1, 80, 8000); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("Expected ErrInvalidFilter above Nyquist, got %v", err)
	}
	if _, err := DesignLowpass(1000, 2000, 0, 80, 8000); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("Expected ErrInvalidFilter for zero attenuation, got %v", err)
	}
}

func TestConvolve(t *testing.T) {
	got, err := Convolve([]float64{1, 2, 3}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{1, 3, 5, 3, 0}, got); diff != "" {
		t.Errorf("Convolve mismatch (-want +got):\n%s", diff)
	}

	if _, err := Convolve(nil, []float64{1}); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Expected ErrEmptyInput, got %v", err)
	}
	if _, err := Convolve([]float64{1}, []float64{}); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Expected ErrEmptyInput, got %v", err)
	}
}

func TestConvolveFFTMatchesDirect(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	a := make([]float64, 3000)
	b := make([]float64, 257)
	for i := range a {
		a[i] = rng.NormFloat64()
	}
	for i := range b {
		b[i] = rng.NormFloat64()
	}

	fast, err := Convolve(a, b)
	if err != nil {
		t.Fatal(err)
	}
	direct := convolveDirect(a, b)

	if diff := cmp.Diff(direct, fast, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("FFT convolution differs from direct form (-want +got):\n%s", diff)
	}
	if fast[len(fast)-1] != 0 {
		t.Errorf("Expected trailing zero sample, got %g", fast[len(fast)-1])
	}
}

func TestSynthesizeTones(t *testing.T) {
	// 1500 Hz falls exactly on bin 16 of a 512 point transform at 48 kHz
	got, err := SynthesizeTones(480, 48000, []float64{1500})
	if err != nil {
		t.Fatalf("SynthesizeTones failed: %v", err)
	}
	if len(got) != 480 {
		t.Fatalf("Expected 480 samples, got %d", len(got))
	}

	want := make([]float64, 480)
	for i := range want {
		want[i] = math.Cos(2 * math.Pi * 1500 * float64(i) / 48000)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Tone mismatch (-want +got):\n%s", diff)
	}

	if _, err := SynthesizeTones(0, 48000, []float64{1000}); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Expected ErrEmptyInput for zero length, got %v", err)
	}
	if _, err := SynthesizeTones(100, 48000, []float64{30000}); !errors.Is(err, ErrInvalidFrequency) {
		t.Errorf("Expected ErrInvalidFrequency above Nyquist, got %v", err)
	}
}

func TestBesselI0(t *testing.T) {
	tests := []struct {
		x, expected float64
	}{
		{0, 1},
		{1, 1.2660658777520082},
		{5, 27.239871823604442},
	}
	for _, tt := range tests {
		if got := besselI0(tt.x); math.Abs(got-tt.expected) > 1e-9*tt.expected {
			t.Errorf("I0(%g): expected %.15g, got %.15g", tt.x, tt.expected, got)
		}
	}
}
