package framesync

import (
	"errors"
	"fmt"
	"math"

	"github.com/skypro1111/covertaudio/internal/bitio"
	"github.com/skypro1111/covertaudio/internal/dsp"
)

// ErrSentinelNotFound is returned when no position can hold a complete sentinel.
var ErrSentinelNotFound = errors.New("framesync: sentinel not found")

// DefaultMinScore is the fraction of a perfect correlation a match needs.
const DefaultMinScore = 0.5

// Options tune the sentinel search.
type Options struct {
	// MinScore rejects matches whose correlation is below this fraction of a
	// perfect match. Zero accepts any peak.
	MinScore float64 `yaml:"min_score" json:"min_score"`
}

// Validate checks the score bounds.
func (o Options) Validate() error {
	if o.MinScore < 0 || o.MinScore > 1 {
		return fmt.Errorf("min_score must be between 0 and 1, got %g", o.MinScore)
	}
	return nil
}

// Match is a located sentinel.
type Match struct {
	// Offset is the index of the last sentinel symbol; the payload starts
	// right after it.
	Offset int
	// Score is the correlation peak as a fraction of a perfect match, in [-1, 1].
	Score float64
}

// Locate returns the index of the last sentinel symbol in symbols, accepting
// any correlation peak.
func Locate(symbols, sentinel []uint8, bitsPerSymbol int) (int, error) {
	m, err := Options{}.Locate(symbols, sentinel, bitsPerSymbol)
	if err != nil {
		return 0, err
	}
	return m.Offset, nil
}

// Locate correlates the bits of symbols with the reversed bits of sentinel,
// both mapped to ±1, and takes the first global maximum.
func (o Options) Locate(symbols, sentinel []uint8, bitsPerSymbol int) (Match, error) {
	if len(symbols) == 0 || len(sentinel) == 0 {
		return Match{}, fmt.Errorf("%w: empty input", ErrSentinelNotFound)
	}

	received, err := bipolarBits(symbols, bitsPerSymbol)
	if err != nil {
		return Match{}, err
	}
	pattern, err := bipolarBits(sentinel, bitsPerSymbol)
	if err != nil {
		return Match{}, err
	}
	for i, j := 0, len(pattern)-1; i < j; i, j = i+1, j-1 {
		pattern[i], pattern[j] = pattern[j], pattern[i]
	}

	corr, err := dsp.Convolve(received, pattern)
	if err != nil {
		return Match{}, err
	}

	// Correlations of ±1 sequences are integers
	best, peak := 0, math.Round(corr[0])
	for i := 1; i < len(received)+len(pattern)-1; i++ {
		if v := math.Round(corr[i]); v > peak {
			best, peak = i, v
		}
	}

	m := Match{
		Offset: best / bitsPerSymbol,
		Score:  peak / float64(len(pattern)),
	}
	if best >= len(received) {
		return m, fmt.Errorf("%w: peak at bit %d is past the %d received bits", ErrSentinelNotFound, best, len(received))
	}
	if m.Score < o.MinScore {
		return m, fmt.Errorf("%w: best score %.2f is below %.2f", ErrSentinelNotFound, m.Score, o.MinScore)
	}
	return m, nil
}

// bipolarBits expands symbols into their bits, most significant first, and
// maps them to ±1.
func bipolarBits(symbols []uint8, bitsPerSymbol int) ([]float64, error) {
	if bitsPerSymbol == 1 {
		return dsp.Bipolar(symbols), nil
	}

	data, err := bitio.PackSymbols(bitsPerSymbol, symbols)
	if err != nil {
		return nil, err
	}
	bits, err := bitio.Symbols(1, data)
	if err != nil {
		return nil, err
	}
	return dsp.Bipolar(bits[:len(symbols)*bitsPerSymbol]), nil
}

// Vote returns the most frequent offset, the first one seen winning ties.
// Negative offsets mark channels that failed to synchronise and are ignored.
func Vote(offsets []int) (int, error) {
	counts := make(map[int]int, len(offsets))
	for _, off := range offsets {
		if off >= 0 {
			counts[off]++
		}
	}

	best, bestCount := 0, 0
	for _, off := range offsets {
		if off >= 0 && counts[off] > bestCount {
			best, bestCount = off, counts[off]
		}
	}

	if bestCount == 0 {
		return 0, fmt.Errorf("%w: no channel synchronised", ErrSentinelNotFound)
	}
	return best, nil
}

// LocateAll runs the search on every channel and votes. It returns the voted
// offset and the per-channel matches, with Offset -1 where a channel failed.
func (o Options) LocateAll(lists [][]uint8, sentinel []uint8, bitsPerSymbol int) (int, []Match, error) {
	matches := make([]Match, len(lists))
	offsets := make([]int, len(lists))
	for i, symbols := range lists {
		m, err := o.Locate(symbols, sentinel, bitsPerSymbol)
		if err != nil {
			m.Offset = -1
		}
		matches[i] = m
		offsets[i] = m.Offset
	}

	offset, err := Vote(offsets)
	return offset, matches, err
}
