package framesync

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var sentinel = []uint8{1, 0, 1, 1, 0, 0, 1, 0}

func insert(noise []uint8, at int) []uint8 {
	out := append([]uint8(nil), noise[:at]...)
	out = append(out, sentinel...)
	return append(out, noise[at:]...)
}

func TestLocate(t *testing.T) {
	noise := []uint8{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	for _, at := range []int{0, 1, 5, 12} {
		symbols := insert(noise, at)
		got, err := Locate(symbols, sentinel, 1)
		if err != nil {
			t.Errorf("Locate with sentinel at %d failed: %v", at, err)
			continue
		}
		if want := at + len(sentinel) - 1; got != want {
			t.Errorf("Expected offset %d for sentinel at %d, got %d", want, at, got)
		}
	}
}

func TestLocateFirstMaximum(t *testing.T) {
	symbols := append(append([]uint8{0, 0}, sentinel...), sentinel...)
	got, err := Locate(symbols, sentinel, 1)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if got != 9 {
		t.Errorf("Expected the first occurrence at 9, got %d", got)
	}
}

func TestLocateScore(t *testing.T) {
	symbols := insert([]uint8{0, 0, 0, 0}, 2)
	symbols[3] ^= 1 // one wrong symbol inside the sentinel

	m, err := Options{MinScore: DefaultMinScore}.Locate(symbols, sentinel, 1)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if m.Offset != 9 {
		t.Errorf("Expected offset 9, got %d", m.Offset)
	}
	if m.Score != 0.75 {
		t.Errorf("Expected score 0.75, got %g", m.Score)
	}

	if _, err := (Options{MinScore: 0.9}).Locate(symbols, sentinel, 1); !errors.Is(err, ErrSentinelNotFound) {
		t.Errorf("Expected ErrSentinelNotFound below min score, got %v", err)
	}
}

func TestLocateMultiBitSymbols(t *testing.T) {
	sentinel := []uint8{2, 1, 3}
	symbols := []uint8{0, 0, 2, 1, 3, 0}
	got, err := Locate(symbols, sentinel, 2)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if got != 4 {
		t.Errorf("Expected offset 4, got %d", got)
	}
}

func TestLocateNotFound(t *testing.T) {
	tests := []struct {
		name     string
		symbols  []uint8
		sentinel []uint8
	}{
		{"empty symbols", nil, sentinel},
		{"empty sentinel", []uint8{1, 0}, nil},
		// The best alignment hangs off the end of the stream
		{"truncated sentinel", []uint8{1, 1}, []uint8{1, 1, 0, 0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Locate(tt.symbols, tt.sentinel, 1); !errors.Is(err, ErrSentinelNotFound) {
				t.Errorf("Expected ErrSentinelNotFound, got %v", err)
			}
		})
	}
}

func TestVote(t *testing.T) {
	tests := []struct {
		name    string
		offsets []int
		want    int
		wantErr bool
	}{
		{"unanimous", []int{7, 7, 7}, 7, false},
		{"majority", []int{7, 3, 7, 9}, 7, false},
		{"tie goes to first seen", []int{5, 7, 7, 5}, 5, false},
		{"failed channels ignored", []int{-1, -1, 4}, 4, false},
		{"all failed", []int{-1, -1}, 0, true},
		{"no channels", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Vote(tt.offsets)
			if tt.wantErr {
				if !errors.Is(err, ErrSentinelNotFound) {
					t.Errorf("Expected ErrSentinelNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Vote failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestLocateAll(t *testing.T) {
	lists := [][]uint8{
		insert([]uint8{0, 0, 0, 0}, 1),
		{0, 0, 0, 0},
		insert([]uint8{0, 0, 0, 0}, 1),
	}

	offset, matches, err := Options{MinScore: DefaultMinScore}.LocateAll(lists, sentinel, 1)
	if err != nil {
		t.Fatalf("LocateAll failed: %v", err)
	}
	if offset != 8 {
		t.Errorf("Expected offset 8, got %d", offset)
	}

	got := []int{matches[0].Offset, matches[1].Offset, matches[2].Offset}
	if diff := cmp.Diff([]int{8, -1, 8}, got); diff != "" {
		t.Errorf("Per-channel offsets mismatch (-want +got):\n%s", diff)
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := (Options{MinScore: 1.5}).Validate(); err == nil {
		t.Error("Expected error for min score above 1, got nil")
	}
	if err := (Options{MinScore: DefaultMinScore}).Validate(); err != nil {
		t.Errorf("Expected valid options, got %v", err)
	}
}
