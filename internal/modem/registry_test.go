package modem

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKinds(t *testing.T) {
	if diff := cmp.Diff([]string{"bfsk", "fhss", "ofdm"}, Kinds()); diff != "" {
		t.Errorf("Kinds() mismatch (-want +got):\n%s", diff)
	}
}

func TestSpecValidate(t *testing.T) {
	params := testParams(1)
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{
			name: "bfsk",
			spec: Spec{Kind: KindBFSK, CarrierFrequency: 18000, Detector: testDetector},
		},
		{
			name: "ofdm",
			spec: Spec{Kind: KindOFDM, MinimumFrequency: 16000, MaximumFrequency: 20500, BandwidthDivisor: 0.5, Detector: testDetector},
		},
		{
			name:    "unknown kind",
			spec:    Spec{Kind: "qam", Detector: testDetector},
			wantErr: true,
		},
		{
			name:    "carrier above nyquist",
			spec:    Spec{Kind: KindBFSK, CarrierFrequency: 30000, Detector: testDetector},
			wantErr: true,
		},
		{
			name:    "inverted range",
			spec:    Spec{Kind: KindFHSS, MinimumFrequency: 20000, MaximumFrequency: 16000, BandwidthDivisor: 1, Detector: testDetector},
			wantErr: true,
		},
		{
			name:    "missing detector",
			spec:    Spec{Kind: KindBFSK, CarrierFrequency: 18000},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate(params)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewModulatorByKind(t *testing.T) {
	params := testParams(1)
	specs := map[string]Spec{
		KindBFSK: {Kind: KindBFSK, CarrierFrequency: 18000, Detector: testDetector},
		KindOFDM: {Kind: KindOFDM, MinimumFrequency: 16000, MaximumFrequency: 20500, BandwidthDivisor: 0.5, Detector: testDetector},
		KindFHSS: {Kind: KindFHSS, MinimumFrequency: 16000, MaximumFrequency: 20500, BandwidthDivisor: 0.5, Detector: testDetector},
	}

	for kind, spec := range specs {
		m, err := NewModulator(params, spec, Options{})
		if err != nil {
			t.Errorf("NewModulator(%s) failed: %v", kind, err)
			continue
		}
		d, err := NewDemodulator(params, spec, Options{})
		if err != nil {
			t.Errorf("NewDemodulator(%s) failed: %v", kind, err)
			continue
		}
		if diff := cmp.Diff(m.Channels(), d.Channels()); diff != "" {
			t.Errorf("%s channels mismatch (-mod +demod):\n%s", kind, diff)
		}
	}

	if _, err := NewModulator(params, Spec{Kind: "qam"}, Options{}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Expected ErrUnknownKind, got %v", err)
	}
	if _, err := NewDemodulator(params, Spec{Kind: "qam"}, Options{}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Expected ErrUnknownKind, got %v", err)
	}
}

func TestMultiCarrier(t *testing.T) {
	if !MultiCarrier(KindOFDM) || MultiCarrier(KindBFSK) || MultiCarrier(KindFHSS) {
		t.Error("Expected only ofdm to be multi-carrier")
	}
}
