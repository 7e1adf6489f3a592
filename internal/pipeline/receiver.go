package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skypro1111/covertaudio/internal/bitio"
	"github.com/skypro1111/covertaudio/internal/codec"
	"github.com/skypro1111/covertaudio/internal/debug"
	"github.com/skypro1111/covertaudio/internal/framesync"
	"github.com/skypro1111/covertaudio/internal/modem"
)

// Reception is the result of one Receive call.
type Reception struct {
	RunID   string
	Payload []byte
	// Offset is the symbol index of the last sentinel symbol.
	Offset int
	// SampleOffset is where the payload starts in the demodulated signal.
	SampleOffset int
	// Matches holds the sentinel search result of every channel.
	Matches []framesync.Match
	// Errors flags payload bytes the codecs could not vouch for.
	Errors  codec.ErrorMask
	Reports []codec.Report
	Symbols int
}

// FlaggedBytes returns the number of payload bytes flagged as suspect.
func (r Reception) FlaggedBytes() int {
	return r.Errors.Count()
}

// UncorrectableBlocks returns the number of blocks the codecs gave up on.
func (r Reception) UncorrectableBlocks() int {
	return codec.ChainResult{Reports: r.Reports}.UncorrectableBlocks()
}

// Receiver recovers payloads from samples.
type Receiver struct {
	link
	demodulator  modem.Demodulator
	sync         framesync.Options
	byteCount    int
	encodedBytes int
	opts         Options
}

// NewReceiver builds a receiver from settings.
func NewReceiver(s Settings, opts Options) (*Receiver, error) {
	opts = opts.withDefaults()

	l, err := newLink(s, opts.Logger)
	if err != nil {
		return nil, err
	}
	if err := s.Sync.Validate(); err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}
	if s.ByteCount < 0 {
		return nil, fmt.Errorf("byte_count cannot be negative, got %d", s.ByteCount)
	}

	mopts := opts.modem()
	mopts.Workers = s.Workers
	demodulator, err := modem.NewDemodulator(s.Params, s.Modem, mopts)
	if err != nil {
		return nil, fmt.Errorf("demodulator: %w", err)
	}

	r := &Receiver{
		link:        l,
		demodulator: demodulator,
		sync:        s.Sync,
		byteCount:   s.ByteCount,
		opts:        opts,
	}

	// The codecs are length-deterministic, so the encoded size of a known
	// payload size is found by encoding zeros.
	if s.ByteCount > 0 {
		encoded, err := l.codecs.Encode(make([]byte, s.ByteCount))
		if err != nil {
			return nil, fmt.Errorf("codecs: %w", err)
		}
		r.encodedBytes = len(encoded)
	}

	return r, nil
}

// Demodulator returns the underlying demodulator.
func (r *Receiver) Demodulator() modem.Demodulator {
	return r.demodulator
}

// Receive runs the modifiers, demodulates, finds the sentinel, assembles the
// payload symbols after it and decodes them through the codec chain.
func (r *Receiver) Receive(ctx context.Context, samples []float64) (Reception, error) {
	runID := r.opts.runID()
	logger := r.opts.Logger.With(slog.String("run_id", runID))
	start := time.Now()

	modified, err := r.modifiers.Apply(samples, true)
	if err != nil {
		return Reception{}, fmt.Errorf("modify: %w", err)
	}
	r.opts.Debug.Signal("modified", modified, r.params.SampleRate)

	lists, err := r.demodulator.Demodulate(ctx, modified)
	if err != nil {
		return Reception{}, fmt.Errorf("demodulate: %w", err)
	}

	offset, matches, err := r.locate(lists)
	if err != nil {
		r.opts.Metrics.RecordSyncFailure()
		logger.Warn("Could not locate sentinel", slog.String("error", err.Error()))
		return Reception{RunID: runID, Matches: matches}, err
	}
	logger.Debug("Located sentinel",
		slog.Int("offset", offset),
		slog.Any("matches", matches))

	symbols := r.demodulator.AssembleSymbols(offset+1, lists)
	r.opts.Debug.Sequence("payload_symbols", debug.Symbols(symbols))

	data, err := bitio.PackSymbols(r.params.BitsPerSymbol, symbols)
	if err != nil {
		return Reception{}, fmt.Errorf("pack symbols: %w", err)
	}
	// Drop the zero padded partial byte
	data = data[:len(symbols)*r.params.BitsPerSymbol/8]

	if r.encodedBytes > 0 {
		if len(data) < r.encodedBytes {
			logger.Warn("Received fewer bytes than expected",
				slog.Int("received", len(data)),
				slog.Int("expected", r.encodedBytes))
		} else {
			data = data[:r.encodedBytes]
		}
	}

	decoded, err := r.codecs.Decode(data, nil)
	if err != nil {
		return Reception{}, fmt.Errorf("decode: %w", err)
	}

	payload, mask := decoded.Data, decoded.Errors
	if r.byteCount > 0 && len(payload) > r.byteCount {
		payload = payload[:r.byteCount]
		if len(mask) > r.byteCount {
			mask = mask[:r.byteCount]
		}
	}

	reception := Reception{
		RunID:        runID,
		Payload:      payload,
		Offset:       offset,
		SampleOffset: (offset + 1) * r.params.SymbolLength(),
		Matches:      matches,
		Errors:       mask,
		Reports:      decoded.Reports,
		Symbols:      len(symbols),
	}

	elapsed := time.Since(start)
	r.opts.Metrics.RecordReceive(len(symbols), len(payload), reception.FlaggedBytes(), reception.UncorrectableBlocks(), elapsed.Seconds())
	if n := reception.FlaggedBytes(); n > 0 {
		logger.Warn("Payload has flagged bytes",
			slog.Int("flagged_bytes", n),
			slog.Int("uncorrectable_blocks", reception.UncorrectableBlocks()))
	}
	logger.Info("Received payload",
		slog.Int("payload_bytes", len(payload)),
		slog.Int("symbols", len(symbols)),
		slog.Int("offset", offset),
		slog.Duration("elapsed", elapsed))

	return reception, nil
}

// locate searches a single list directly and votes across several.
func (r *Receiver) locate(lists [][]uint8) (int, []framesync.Match, error) {
	if len(lists) == 1 {
		m, err := r.sync.Locate(lists[0], r.sentinel, r.params.BitsPerSymbol)
		if err != nil {
			m.Offset = -1
		}
		return m.Offset, []framesync.Match{m}, err
	}
	return r.sync.LocateAll(lists, r.sentinel, r.params.BitsPerSymbol)
}
