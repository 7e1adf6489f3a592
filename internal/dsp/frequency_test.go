package dsp

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCarrierFrequencies(t *testing.T) {
	tests := []struct {
		name      string
		min, max  float64
		bandwidth float64
		expected  []float64
	}{
		{
			name:      "two bands",
			min:       20000,
			max:       22000,
			bandwidth: 1000,
			expected:  []float64{20500, 21500},
		},
		{
			name:      "band wider than range",
			min:       20000,
			max:       20500,
			bandwidth: 1000,
			expected:  []float64{},
		},
		{
			name:      "partial last band dropped",
			min:       1000,
			max:       3500,
			bandwidth: 1000,
			expected:  []float64{1500, 2500},
		},
		{
			name:      "zero bandwidth",
			min:       0,
			max:       1000,
			bandwidth: 0,
			expected:  []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CarrierFrequencies(tt.min, tt.max, tt.bandwidth)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("CarrierFrequencies mismatch (-want +got):\n%s", diff)
			}

			for _, ch := range TileChannels(tt.min, tt.max, tt.bandwidth) {
				if ch.Low() < tt.min || ch.High() > tt.max {
					t.Errorf("Channel %+v escapes [%g, %g]", ch, tt.min, tt.max)
				}
			}
		})
	}
}

func TestPlanFSK(t *testing.T) {
	plan, err := PlanFSK(512, 48000, 18000, 4)
	if err != nil {
		t.Fatalf("PlanFSK failed: %v", err)
	}

	expected := FSKPlan{
		Carrier:   18000,
		Symbol0:   -187.5,
		Symbol1:   187.5,
		Delta:     93.75,
		Bandwidth: 562.5,
	}
	if diff := cmp.Diff(expected, plan); diff != "" {
		t.Errorf("PlanFSK mismatch (-want +got):\n%s", diff)
	}

	if plan.Separation() != 375 {
		t.Errorf("Expected separation 375, got %g", plan.Separation())
	}
	if plan.Tone0() != 17812.5 || plan.Tone1() != 18187.5 {
		t.Errorf("Expected tones 17812.5/18187.5, got %g/%g", plan.Tone0(), plan.Tone1())
	}
}

func TestPlanFSKInvalid(t *testing.T) {
	tests := []struct {
		name       string
		sps        int
		rate       float64
		carrier    float64
		separation int
	}{
		{"zero samples per symbol", 0, 48000, 1000, 2},
		{"zero sample rate", 100, 0, 1000, 2},
		{"zero separation", 100, 48000, 1000, 0},
		{"negative carrier", 100, 48000, -1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PlanFSK(tt.sps, tt.rate, tt.carrier, tt.separation); !errors.Is(err, ErrInvalidFrequency) {
				t.Errorf("Expected ErrInvalidFrequency, got %v", err)
			}
		})
	}
}
