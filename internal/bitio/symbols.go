package bitio

import "fmt"

// MaxBitsPerSymbol is the widest symbol a tracker can produce.
const MaxBitsPerSymbol = 8

// SymbolTracker slices a byte buffer into fixed-width symbols, MSB first.
type SymbolTracker struct {
	bitsPerSymbol int
	stream        *Stream
}

// NewSymbolTracker creates a tracker emitting bitsPerSymbol-wide symbols from data.
func NewSymbolTracker(bitsPerSymbol int, data []byte) (*SymbolTracker, error) {
	if bitsPerSymbol < 1 || bitsPerSymbol > MaxBitsPerSymbol {
		return nil, fmt.Errorf("%w: bits per symbol must be between 1 and %d, got %d",
			ErrInvalidWidth, MaxBitsPerSymbol, bitsPerSymbol)
	}

	return &SymbolTracker{
		bitsPerSymbol: bitsPerSymbol,
		stream:        NewStream(data, false),
	}, nil
}

// Next returns the next symbol. It returns false once fewer than bitsPerSymbol
// bits remain; a partial trailing symbol is discarded.
func (t *SymbolTracker) Next() (uint8, bool) {
	if remaining, _ := t.stream.Remaining(); remaining < t.bitsPerSymbol {
		return 0, false
	}

	value, _, err := t.stream.ReadUint(t.bitsPerSymbol)
	if err != nil {
		return 0, false
	}

	return uint8(value), true
}

// Symbols drains data into an ordered list of bitsPerSymbol-wide symbols.
func Symbols(bitsPerSymbol int, data []byte) ([]uint8, error) {
	tracker, err := NewSymbolTracker(bitsPerSymbol, data)
	if err != nil {
		return nil, err
	}

	symbols := make([]uint8, 0, len(data)*8/bitsPerSymbol)
	for {
		symbol, ok := tracker.Next()
		if !ok {
			break
		}
		symbols = append(symbols, symbol)
	}

	return symbols, nil
}

// PackSymbols is the inverse of Symbols: it packs each symbol into
// bitsPerSymbol bits. A trailing partial byte is zero padded.
func PackSymbols(bitsPerSymbol int, symbols []uint8) ([]byte, error) {
	if bitsPerSymbol < 1 || bitsPerSymbol > MaxBitsPerSymbol {
		return nil, fmt.Errorf("%w: bits per symbol must be between 1 and %d, got %d",
			ErrInvalidWidth, MaxBitsPerSymbol, bitsPerSymbol)
	}

	packer := NewPacker()
	for _, symbol := range symbols {
		if err := packer.WriteBits(uint64(symbol), bitsPerSymbol); err != nil {
			return nil, err
		}
	}

	return packer.Bytes(), nil
}
