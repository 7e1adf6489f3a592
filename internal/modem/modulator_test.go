package modem

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/skypro1111/covertaudio/internal/dsp"
)

func testParams(expansion int) Params {
	return Params{
		BitsPerSymbol:         1,
		SampleRate:            48000,
		SamplesPerSymbol:      512,
		SymbolExpansionFactor: expansion,
		SeparationIntervals:   4,
	}
}

var testSentinel = []uint8{1, 0, 1, 1, 0, 0, 1, 0, 1, 1, 1, 0, 0, 0, 1, 0}

func randomSymbols(n int, seed uint64) []uint8 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	symbols := make([]uint8, n)
	for i := range symbols {
		symbols[i] = uint8(rng.IntN(2))
	}
	return symbols
}

func TestParamsValidate(t *testing.T) {
	if err := testParams(1).Validate(); err != nil {
		t.Errorf("Expected valid params, got %v", err)
	}

	err := Params{}.Validate()
	if err == nil {
		t.Fatal("Expected error for zero params, got nil")
	}
	// Every field is reported
	for _, field := range []string{"bits_per_symbol", "sample_rate", "samples_per_symbol", "symbol_expansion_factor", "separation_intervals"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("Expected error to mention %s, got %v", field, err)
		}
	}

	if size := (Params{BitsPerSymbol: 3}).ConstellationSize(); size != 8 {
		t.Errorf("Expected constellation size 8, got %d", size)
	}
}

func TestBFSKModulatorRejectsWideSymbols(t *testing.T) {
	params := testParams(1)
	params.BitsPerSymbol = 2
	if _, err := NewBFSKModulator(params, 18000); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
}

func TestBFSKModulatorRejectsToneAboveNyquist(t *testing.T) {
	if _, err := NewBFSKModulator(testParams(1), 23950); !errors.Is(err, dsp.ErrInvalidFrequency) {
		t.Errorf("Expected ErrInvalidFrequency, got %v", err)
	}
}

func TestBFSKModulate(t *testing.T) {
	params := testParams(2)
	m, err := NewBFSKModulator(params, 18000)
	if err != nil {
		t.Fatalf("NewBFSKModulator failed: %v", err)
	}

	sentinel := []uint8{1, 0}
	symbols := []uint8{0, 0, 1}
	out, err := m.Modulate(context.Background(), symbols, sentinel)
	if err != nil {
		t.Fatalf("Modulate failed: %v", err)
	}

	if want := 5 * params.SymbolLength(); len(out) != want {
		t.Fatalf("Expected %d samples, got %d", want, len(out))
	}

	// Sentinel first, then payload, each symbol a fixed waveform
	order := []uint8{1, 0, 0, 0, 1}
	for i, s := range order {
		block := out[i*params.SymbolLength() : (i+1)*params.SymbolLength()]
		if diff := cmp.Diff(m.waveform(s), block); diff != "" {
			t.Errorf("Symbol %d waveform mismatch (-want +got):\n%s", i, diff)
		}
	}

	// The expansion is silent
	for i, v := range out[params.SamplesPerSymbol:params.SymbolLength()] {
		if v != 0 {
			t.Fatalf("Expected silence at %d, got %g", params.SamplesPerSymbol+i, v)
		}
	}
}

func TestBFSKWaveformsAreTones(t *testing.T) {
	params := testParams(1)
	m, err := NewBFSKModulator(params, 18000)
	if err != nil {
		t.Fatalf("NewBFSKModulator failed: %v", err)
	}

	// 512 samples at 48 kHz resolve the tones exactly
	for symbol, freq := range []float64{m.Plan().Tone0(), m.Plan().Tone1()} {
		want := make([]float64, params.SamplesPerSymbol)
		for i := range want {
			want[i] = math.Cos(2 * math.Pi * freq * float64(i) / params.SampleRate)
		}
		if diff := cmp.Diff(want, m.waveform(uint8(symbol)), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("Symbol %d tone mismatch (-want +got):\n%s", symbol, diff)
		}
	}
}

func TestBFSKModulateCancelled(t *testing.T) {
	m, err := NewBFSKModulator(testParams(1), 18000)
	if err != nil {
		t.Fatalf("NewBFSKModulator failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Modulate(ctx, []uint8{1}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSplit(t *testing.T) {
	got := Split([]uint8{1, 2, 3, 4, 5, 6, 7}, []uint8{8, 9}, 3)
	want := [][]uint8{
		{8, 9, 1, 4, 7},
		{8, 9, 2, 5},
		{8, 9, 3, 6},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Split() mismatch (-want +got):\n%s", diff)
	}

	// Interleave undoes the split after the sentinel
	if diff := cmp.Diff([]uint8{1, 2, 3, 4, 5, 6}, Interleave(2, got)); diff != "" {
		t.Errorf("Interleave() mismatch (-want +got):\n%s", diff)
	}
}

func TestInterleave(t *testing.T) {
	lists := [][]uint8{{0, 1, 2}, {3, 4}}
	tests := []struct {
		offset int
		want   []uint8
	}{
		{0, []uint8{0, 3, 1, 4}},
		{1, []uint8{1, 4}},
		{2, nil},
		{-1, nil},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, Interleave(tt.offset, lists)); diff != "" {
			t.Errorf("Interleave(%d) mismatch (-want +got):\n%s", tt.offset, diff)
		}
	}
}

func TestOFDMModulator(t *testing.T) {
	params := testParams(1)
	m, err := NewOFDMModulator(params, 16000, 20500, 0.5, Options{Workers: 2})
	if err != nil {
		t.Fatalf("NewOFDMModulator failed: %v", err)
	}

	want := []dsp.Channel{
		{Carrier: 16562.5, Bandwidth: 1125},
		{Carrier: 17687.5, Bandwidth: 1125},
		{Carrier: 18812.5, Bandwidth: 1125},
		{Carrier: 19937.5, Bandwidth: 1125},
	}
	if diff := cmp.Diff(want, m.Channels()); diff != "" {
		t.Errorf("Channels() mismatch (-want +got):\n%s", diff)
	}

	out, err := m.Modulate(context.Background(), randomSymbols(66, 1), testSentinel)
	if err != nil {
		t.Fatalf("Modulate failed: %v", err)
	}
	// The longest channel carries 16 sentinel and 17 payload symbols
	if want := 33 * params.SymbolLength(); len(out) != want {
		t.Errorf("Expected %d samples, got %d", want, len(out))
	}
	if dsp.Peak(out) == 0 {
		t.Error("Expected a non-silent composite signal")
	}
}

func TestOFDMModulatorNoChannels(t *testing.T) {
	_, err := NewOFDMModulator(testParams(1), 16000, 16500, 0.5, Options{})
	if !errors.Is(err, ErrNoChannels) {
		t.Errorf("Expected ErrNoChannels, got %v", err)
	}
}

func TestFHSSModulatorIsReproducible(t *testing.T) {
	params := testParams(1)
	newModulator := func() *FHSSModulator {
		m, err := NewFHSSModulator(params, 16000, 20500, 0.5, Options{Rand: rand.New(rand.NewPCG(7, 11))})
		if err != nil {
			t.Fatalf("NewFHSSModulator failed: %v", err)
		}
		return m
	}

	symbols := randomSymbols(24, 3)
	a, err := newModulator().Modulate(context.Background(), symbols, testSentinel)
	if err != nil {
		t.Fatalf("Modulate failed: %v", err)
	}
	b, err := newModulator().Modulate(context.Background(), symbols, testSentinel)
	if err != nil {
		t.Fatalf("Modulate failed: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Same seed produced different hops (-a +b):\n%s", diff)
	}

	// Every symbol is the right tone on one of the hop channels
	m := newModulator()
	all := append(append([]uint8(nil), testSentinel...), symbols...)
	for i, s := range all {
		block := a[i*params.SymbolLength() : (i+1)*params.SymbolLength()]
		found := false
		for _, sub := range m.subs {
			if cmp.Equal(sub.waveform(s), block) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Symbol %d is not a hop waveform for %d", i, s)
		}
	}
}
