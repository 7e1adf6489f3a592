package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func sine(n int, sampleRate, frequency, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*frequency*float64(i)/sampleRate)
	}
	return out
}

func TestEncodeWAV(t *testing.T) {
	// 0.1 seconds of a 440Hz sine at 8kHz, stereo
	sampleRate := 8000
	numSamples := 800
	channels := [][]float64{
		sine(numSamples, float64(sampleRate), 440, 0.5),
		sine(numSamples, float64(sampleRate), 880, 0.5),
	}

	wavData, err := EncodeWAV(channels, sampleRate, PCM16)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	// WAV header should be 44 bytes
	expectedSize := 44 + numSamples*2*2
	if len(wavData) != expectedSize {
		t.Errorf("Expected WAV size %d, got %d", expectedSize, len(wavData))
	}

	if err := ValidateWAV(wavData); err != nil {
		t.Errorf("Generated WAV is invalid: %v", err)
	}

	info, err := GetWAVInfo(wavData)
	if err != nil {
		t.Fatalf("Failed to get WAV info: %v", err)
	}
	if info.SampleRate != uint32(sampleRate) {
		t.Errorf("Expected sample rate %d, got %d", sampleRate, info.SampleRate)
	}
	if info.Channels != 2 {
		t.Errorf("Expected 2 channels, got %d", info.Channels)
	}
	if info.BitsPerSample != 16 {
		t.Errorf("Expected 16 bits per sample, got %d", info.BitsPerSample)
	}
	if info.NumSamples != uint32(numSamples) {
		t.Errorf("Expected %d samples, got %d", numSamples, info.NumSamples)
	}
	if info.Format != "pcm16" {
		t.Errorf("Expected format pcm16, got %s", info.Format)
	}
	if math.Abs(info.Duration-0.1) > 0.001 {
		t.Errorf("Expected duration %.3f, got %.3f", 0.1, info.Duration)
	}
}

func TestDecodeWAVPCM16(t *testing.T) {
	original := [][]float64{
		{0.5, -0.25, 1.5, -1},
		{0, 0.125, -0.5, 0.75},
	}

	wavData, err := EncodeWAV(original, 48000, PCM16)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if decoded.SampleRate != 48000 {
		t.Errorf("Expected sample rate 48000, got %d", decoded.SampleRate)
	}
	if decoded.Format != PCM16 {
		t.Errorf("Expected PCM16, got %s", decoded.Format)
	}
	if len(decoded.Channels) != 2 || decoded.Frames() != 4 {
		t.Fatalf("Expected 2 channels of 4 samples, got %d of %d", len(decoded.Channels), decoded.Frames())
	}

	for c, ch := range original {
		for i, want := range ch {
			// Clipped to full scale, quantised to 16 bits
			want = math.Max(-1, math.Min(1, want))
			if got := decoded.Channels[c][i]; math.Abs(got-want) > 1.0/16384 {
				t.Errorf("Channel %d sample %d: expected %g, got %g", c, i, want, got)
			}
		}
	}
}

func TestDecodeWAVFloat32(t *testing.T) {
	original := [][]float64{{0.5, -0.25, 0.75}}

	wavData, err := EncodeFloatWAV(original, 44100)
	if err != nil {
		t.Fatalf("EncodeFloatWAV failed: %v", err)
	}
	if len(wavData) != 44+3*4 {
		t.Errorf("Expected WAV size %d, got %d", 44+3*4, len(wavData))
	}

	decoded, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if decoded.Format != Float32 {
		t.Errorf("Expected float32, got %s", decoded.Format)
	}
	for i, want := range original[0] {
		if got := decoded.Channels[0][i]; got != want {
			t.Errorf("Sample %d: expected %g, got %g", i, want, got)
		}
	}
}

func TestDecodeWAVSkipsUnknownChunks(t *testing.T) {
	wavData, err := EncodeWAV([][]float64{{0.5, 0.5}}, 8000, PCM16)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	// Insert an odd-sized LIST chunk between fmt and data
	list := []byte{'L', 'I', 'S', 'T', 3, 0, 0, 0, 'a', 'b', 'c', 0}
	patched := append(append(append([]byte{}, wavData[:36]...), list...), wavData[36:]...)
	binary.LittleEndian.PutUint32(patched[4:8], uint32(len(patched)-8))

	decoded, err := DecodeWAV(patched)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if decoded.Frames() != 2 {
		t.Errorf("Expected 2 samples, got %d", decoded.Frames())
	}
}

func TestEncodeWAVEmpty(t *testing.T) {
	if _, err := EncodeWAV(nil, 8000, PCM16); err == nil {
		t.Error("Expected error for no channels")
	}
	if _, err := EncodeWAV([][]float64{{}}, 8000, PCM16); err == nil {
		t.Error("Expected error for empty samples")
	}
}

func TestEncodeWAVInvalid(t *testing.T) {
	samples := [][]float64{{0.1, 0.2, 0.3}}
	if _, err := EncodeWAV(samples, 0, PCM16); err == nil {
		t.Error("Expected error for zero sample rate")
	}
	if _, err := EncodeWAV(samples, -1000, PCM16); err == nil {
		t.Error("Expected error for negative sample rate")
	}
	if _, err := EncodeWAV(samples, 8000, SampleFormat(2)); err == nil {
		t.Error("Expected error for unsupported format")
	}
	if _, err := EncodeWAV([][]float64{{0.1, 0.2}, {0.1}}, 8000, PCM16); err == nil {
		t.Error("Expected error for ragged channels")
	}
}

func TestValidateWAV(t *testing.T) {
	if err := ValidateWAV([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("Expected ErrInvalidWAV for too short data, got %v", err)
	}

	invalidWAV := make([]byte, 50)
	copy(invalidWAV[0:4], []byte("FAKE"))
	if err := ValidateWAV(invalidWAV); !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("Expected ErrInvalidWAV for invalid RIFF header, got %v", err)
	}

	// Header only, no data chunk
	headerOnly := make([]byte, 12)
	copy(headerOnly[0:4], "RIFF")
	copy(headerOnly[8:12], "WAVE")
	if err := ValidateWAV(headerOnly); !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("Expected ErrInvalidWAV for missing chunks, got %v", err)
	}
}

func TestGetWAVDuration(t *testing.T) {
	// 1 second of audio at 8kHz
	wavData, err := EncodeWAV([][]float64{make([]float64, 8000)}, 8000, Float32)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	duration, err := GetWAVDuration(wavData)
	if err != nil {
		t.Fatalf("GetWAVDuration failed: %v", err)
	}
	if math.Abs(duration-1.0) > 0.001 {
		t.Errorf("Expected duration %.3f, got %.3f", 1.0, duration)
	}
}

func TestParseSampleFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    SampleFormat
		wantErr bool
	}{
		{"pcm16", PCM16, false},
		{"FLOAT32", Float32, false},
		{"mp3", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseSampleFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSampleFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSampleFormat(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}
