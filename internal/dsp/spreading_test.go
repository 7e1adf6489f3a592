package dsp

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSpreadingCodeSequence(t *testing.T) {
	// x^3 + x + 1
	code, err := NewSpreadingCode(3, 0b011, 0b001)
	if err != nil {
		t.Fatalf("NewSpreadingCode failed: %v", err)
	}

	got, err := code.Bits(14)
	if err != nil {
		t.Fatal(err)
	}
	// 1001011 repeated
	if diff := cmp.Diff([]byte{0x97, 0x2C}, got); diff != "" {
		t.Errorf("Sequence mismatch (-want +got):\n%s", diff)
	}

	code.Reset()
	again, err := code.Bits(7)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0x96}, again); diff != "" {
		t.Errorf("Sequence after reset mismatch (-want +got):\n%s", diff)
	}
}

func TestSpreadingCodeIsMaximalLength(t *testing.T) {
	// x^5 + x^2 + 1
	code, err := NewSpreadingCode(5, 0b00101, 0b10011)
	if err != nil {
		t.Fatal(err)
	}
	if code.Period() != 31 {
		t.Fatalf("Expected period 31, got %d", code.Period())
	}

	first := make([]uint8, 31)
	ones := 0
	for i := range first {
		first[i] = code.Bit()
		ones += int(first[i])
	}
	if ones != 16 {
		t.Errorf("Expected 16 ones in an m-sequence of length 31, got %d", ones)
	}

	for i := range first {
		if bit := code.Bit(); bit != first[i] {
			t.Fatalf("Sequence does not repeat with period 31 at chip %d", i)
		}
	}
}

func TestGoldCodePeriod(t *testing.T) {
	gold, err := NewGoldCode(5, 0b00101, 0b00001, 0b11101, 0b00001)
	if err != nil {
		t.Fatalf("NewGoldCode failed: %v", err)
	}

	first, err := gold.Bits(31)
	if err != nil {
		t.Fatal(err)
	}
	second, err := gold.Bits(31)
	if err != nil {
		t.Fatal(err)
	}

	// 31 bits leave the second read misaligned; compare chip by chip instead
	gold.Reset()
	chips := make([]uint8, 62)
	for i := range chips {
		chips[i] = gold.Bit()
	}
	if diff := cmp.Diff(chips[:31], chips[31:]); diff != "" {
		t.Errorf("Gold code is not periodic (-first +second):\n%s", diff)
	}
	if len(first) != 4 || len(second) != 4 {
		t.Errorf("Expected 4 packed bytes per 31 chips, got %d and %d", len(first), len(second))
	}
}

func TestSpreadingCodeValidation(t *testing.T) {
	tests := []struct {
		name      string
		degree    int
		generator uint32
		seed      uint32
	}{
		{"degree too small", 1, 0b1, 0b1},
		{"degree too large", 33, 0b1, 0b1},
		{"g0 clear", 4, 0b0110, 0b1},
		{"generator above degree", 3, 0b1011, 0b1},
		{"zero seed", 3, 0b011, 0},
		{"seed above degree", 3, 0b011, 0b1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSpreadingCode(tt.degree, tt.generator, tt.seed); !errors.Is(err, ErrInvalidSpreadingCode) {
				t.Errorf("Expected ErrInvalidSpreadingCode, got %v", err)
			}
		})
	}

	code, err := NewSpreadingCode(32, 0x80000057, 1)
	if err != nil {
		t.Fatalf("Expected degree 32 to be accepted, got %v", err)
	}
	if _, err := code.Bits(0); !errors.Is(err, ErrInvalidSpreadingCode) {
		t.Errorf("Expected ErrInvalidSpreadingCode for zero chips, got %v", err)
	}
}
