package modem

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestGardner(t *testing.T) {
	tests := []struct {
		name   string
		signal []float64
		sps    int
		want   []int
	}{
		{
			name:   "constant signal coasts",
			signal: repeat(1, 20),
			sps:    4,
			want:   []int{4, 8, 12, 16},
		},
		{
			name:   "late sampling moves earlier",
			signal: append(repeat(1, 6), repeat(-1, 6)...),
			sps:    4,
			want:   []int{4, 8, 11},
		},
		{
			name:   "early sampling moves later",
			signal: append(repeat(1, 7), repeat(-1, 7)...),
			sps:    4,
			want:   []int{4, 8, 13},
		},
		{
			name:   "error below threshold keeps offset",
			signal: append(append(repeat(1, 6), 0), repeat(-1, 5)...),
			sps:    4,
			want:   []int{4, 8},
		},
		{
			name:   "shorter than one symbol",
			signal: repeat(1, 4),
			sps:    4,
			want:   nil,
		},
		{
			name:   "degenerate symbol length",
			signal: repeat(1, 10),
			sps:    1,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Gardner(tt.signal, tt.sps)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Gardner() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGardnerTracksDrift(t *testing.T) {
	// Alternating symbols whose true period is one sample longer than assumed
	const sps = 16
	var signal []float64
	for i := 0; i < 40; i++ {
		v := 1.0
		if i%2 == 1 {
			v = -1
		}
		signal = append(signal, repeat(v, sps+1)...)
	}

	points := Gardner(signal, sps)
	if len(points) < 30 {
		t.Fatalf("Expected at least 30 points, got %d", len(points))
	}

	// Every point must stay inside its own symbol
	for i, p := range points {
		symbol := p / (sps + 1)
		if symbol != i+1 && symbol != i {
			t.Errorf("Point %d at %d falls in symbol %d", i, p, symbol)
		}
	}
}
