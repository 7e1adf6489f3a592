package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/skypro1111/covertaudio/internal/bitio"
	"github.com/skypro1111/covertaudio/internal/codec"
	"github.com/skypro1111/covertaudio/internal/debug"
	"github.com/skypro1111/covertaudio/internal/framesync"
	"github.com/skypro1111/covertaudio/internal/modem"
	"github.com/skypro1111/covertaudio/internal/modifier"
)

// ErrEmptyPayload is returned when there is nothing to transmit.
var ErrEmptyPayload = errors.New("pipeline: empty payload")

// Settings describe one end of a link. Both ends must agree on every field
// except ByteCount and Sync, which only the receiver reads.
type Settings struct {
	Params    modem.Params
	Modem     modem.Spec
	Modifiers []modifier.Spec
	Codecs    []codec.Spec
	Sentinel  []byte
	// ByteCount truncates the received payload when positive.
	ByteCount int
	Sync      framesync.Options
	Workers   int
}

// Recorder receives pipeline measurements.
type Recorder interface {
	RecordTransmit(symbols, payloadBytes int, seconds float64)
	RecordReceive(symbols, payloadBytes, flaggedBytes, uncorrectableBlocks int, seconds float64)
	RecordSyncFailure()
}

type nopRecorder struct{}

func (nopRecorder) RecordTransmit(int, int, float64) {}
func (nopRecorder) RecordReceive(int, int, int, int, float64) {}
func (nopRecorder) RecordSyncFailure() {}

// Options carries collaborators. RunID fixes the run identifier; when empty
// every call gets a fresh one.
type Options struct {
	Logger  *slog.Logger
	Metrics Recorder
	Debug   debug.Sink
	RunID   string
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Metrics == nil {
		o.Metrics = nopRecorder{}
	}
	if o.Debug == nil {
		o.Debug = debug.Nop{}
	}
	return o
}

func (o Options) runID() string {
	if o.RunID != "" {
		return o.RunID
	}
	return uuid.NewString()
}

func (o Options) modem() modem.Options {
	return modem.Options{Logger: o.Logger, Debug: o.Debug}
}

// link holds the parts shared by both ends.
type link struct {
	params    modem.Params
	codecs    *codec.Chain
	modifiers *modifier.Chain
	sentinel  []uint8
}

func newLink(s Settings, logger *slog.Logger) (link, error) {
	var errs []error
	if err := s.Params.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("modulation: %w", err))
	}
	if len(s.Sentinel) == 0 {
		errs = append(errs, errors.New("sentinel cannot be empty"))
	}
	codecs, err := codec.NewChain(s.Codecs, logger)
	if err != nil {
		errs = append(errs, fmt.Errorf("codecs: %w", err))
	}
	modifiers, err := modifier.NewChain(s.Modifiers, s.Params.SampleRate, logger)
	if err != nil {
		errs = append(errs, fmt.Errorf("modifiers: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return link{}, err
	}

	sentinel, err := bitio.Symbols(s.Params.BitsPerSymbol, s.Sentinel)
	if err != nil {
		return link{}, fmt.Errorf("sentinel: %w", err)
	}

	return link{
		params:    s.Params,
		codecs:    codecs,
		modifiers: modifiers,
		sentinel:  sentinel,
	}, nil
}

// SentinelSymbols returns the sentinel as transmitted symbols.
func (l link) SentinelSymbols() []uint8 {
	return append([]uint8(nil), l.sentinel...)
}
