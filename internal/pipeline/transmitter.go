package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skypro1111/covertaudio/internal/bitio"
	"github.com/skypro1111/covertaudio/internal/modem"
)

// Transmission is the result of one Transmit call.
type Transmission struct {
	RunID        string
	Samples      []float64
	SampleRate   float64
	Symbols      int
	EncodedBytes int
}

// Duration returns the length of the signal in seconds.
func (t Transmission) Duration() float64 {
	return float64(len(t.Samples)) / t.SampleRate
}

// Transmitter encodes, modulates and modifies payloads.
type Transmitter struct {
	link
	modulator modem.Modulator
	opts      Options
}

// NewTransmitter builds a transmitter from settings.
func NewTransmitter(s Settings, opts Options) (*Transmitter, error) {
	opts = opts.withDefaults()

	l, err := newLink(s, opts.Logger)
	if err != nil {
		return nil, err
	}

	mopts := opts.modem()
	mopts.Workers = s.Workers
	modulator, err := modem.NewModulator(s.Params, s.Modem, mopts)
	if err != nil {
		return nil, fmt.Errorf("modulator: %w", err)
	}

	return &Transmitter{link: l, modulator: modulator, opts: opts}, nil
}

// Modulator returns the underlying modulator.
func (t *Transmitter) Modulator() modem.Modulator {
	return t.modulator
}

// Transmit turns payload into samples: codec chain, symbols, modulation with
// the sentinel in front, then the modifier chain.
func (t *Transmitter) Transmit(ctx context.Context, payload []byte) (Transmission, error) {
	runID := t.opts.runID()
	logger := t.opts.Logger.With(slog.String("run_id", runID))
	start := time.Now()

	if len(payload) == 0 {
		return Transmission{}, ErrEmptyPayload
	}

	encoded, err := t.codecs.Encode(payload)
	if err != nil {
		return Transmission{}, fmt.Errorf("encode: %w", err)
	}

	symbols, err := bitio.Symbols(t.params.BitsPerSymbol, encoded)
	if err != nil {
		return Transmission{}, fmt.Errorf("symbols: %w", err)
	}

	samples, err := t.modulator.Modulate(ctx, symbols, t.sentinel)
	if err != nil {
		return Transmission{}, fmt.Errorf("modulate: %w", err)
	}

	samples, err = t.modifiers.Apply(samples, false)
	if err != nil {
		return Transmission{}, fmt.Errorf("modify: %w", err)
	}

	t.opts.Debug.Signal("transmitted", samples, t.params.SampleRate)

	elapsed := time.Since(start)
	t.opts.Metrics.RecordTransmit(len(symbols), len(payload), elapsed.Seconds())
	logger.Info("Transmitted payload",
		slog.Int("payload_bytes", len(payload)),
		slog.Int("encoded_bytes", len(encoded)),
		slog.Int("symbols", len(symbols)),
		slog.Int("samples", len(samples)),
		slog.Duration("elapsed", elapsed))

	return Transmission{
		RunID:        runID,
		Samples:      samples,
		SampleRate:   t.params.SampleRate,
		Symbols:      len(symbols),
		EncodedBytes: len(encoded),
	}, nil
}
