package modem

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/skypro1111/covertaudio/internal/debug"
	"github.com/skypro1111/covertaudio/internal/dsp"
)

// Demodulator recovers hard symbols from samples. Demodulate returns one
// symbol list per sub-channel; AssembleSymbols merges them back into the
// transmitted order starting at offset.
type Demodulator interface {
	Demodulate(ctx context.Context, samples []float64) ([][]uint8, error)
	AssembleSymbols(offset int, lists [][]uint8) []uint8
	Channels() []dsp.Channel
	Params() Params
}

// pad appends one symbol of silence so the final symbol gets a decision point.
func pad(params Params, samples []float64) ([]float64, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples to demodulate", dsp.ErrEmptyInput)
	}
	padded := make([]float64, len(samples)+params.SymbolLength())
	copy(padded, samples)
	return padded, nil
}

// assembleSequential returns the single list from offset on.
func assembleSequential(offset int, lists [][]uint8) []uint8 {
	if len(lists) == 0 || offset < 0 || offset >= len(lists[0]) {
		return nil
	}
	return slices.Clone(lists[0][offset:])
}

// BFSKDemodulator detects the two tones of one carrier.
type BFSKDemodulator struct {
	name     string
	params   Params
	plan     dsp.FSKPlan
	branches [2]*dsp.Filter
	envelope *envelope
	recovery *recovery
	debug    debug.Sink
	logger   *slog.Logger
}

// NewBFSKDemodulator builds the detector for carrier.
func NewBFSKDemodulator(params Params, carrier float64, det Detector, opts Options) (*BFSKDemodulator, error) {
	return newBFSKDemodulator("bfsk", params, carrier, det, opts.withDefaults())
}

func newBFSKDemodulator(name string, params Params, carrier float64, det Detector, opts Options) (*BFSKDemodulator, error) {
	if err := params.binary(); err != nil {
		return nil, err
	}
	if err := det.Validate(params); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}

	plan, err := dsp.PlanFSK(params.SamplesPerSymbol, params.SampleRate, carrier, params.SeparationIntervals)
	if err != nil {
		return nil, err
	}

	d := &BFSKDemodulator{
		name:   name,
		params: params,
		plan:   plan,
		debug:  opts.Debug,
		logger: opts.Logger,
	}
	for symbol, tone := range []float64{plan.Tone0(), plan.Tone1()} {
		if d.branches[symbol], err = toneFilter(params, det, tone, plan.Separation()); err != nil {
			return nil, fmt.Errorf("symbol %d filter: %w", symbol, err)
		}
	}
	if d.envelope, err = newEnvelope(params, det, carrier+plan.Bandwidth/2, plan.Tone0()); err != nil {
		return nil, err
	}
	if d.recovery, err = newRecovery(params, det); err != nil {
		return nil, err
	}

	d.logger.Debug("BFSK demodulator ready",
		slog.String("name", name),
		slog.Float64("carrier", carrier),
		slog.Float64("tone0", plan.Tone0()),
		slog.Float64("tone1", plan.Tone1()),
		slog.Int("branch_taps", d.branches[0].Len()),
		slog.Int("decimation", d.envelope.decimation))

	return d, nil
}

func (d *BFSKDemodulator) Params() Params {
	return d.params
}

func (d *BFSKDemodulator) Channels() []dsp.Channel {
	return []dsp.Channel{{Carrier: d.plan.Carrier, Bandwidth: d.plan.Bandwidth}}
}

func (d *BFSKDemodulator) Demodulate(ctx context.Context, samples []float64) ([][]uint8, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbols, err := d.demodulate(samples)
	if err != nil {
		return nil, err
	}
	return [][]uint8{symbols}, nil
}

func (d *BFSKDemodulator) demodulate(samples []float64) ([]uint8, error) {
	padded, err := pad(d.params, samples)
	if err != nil {
		return nil, err
	}

	var envelopes [2][]float64
	for symbol, branch := range d.branches {
		raw, err := d.envelope.detect(padded, branch)
		if err != nil {
			return nil, fmt.Errorf("%s symbol %d branch: %w", d.name, symbol, err)
		}
		envelopes[symbol] = dsp.Normalize(raw)
	}

	dec, err := d.recovery.decide(dsp.MergeBySign(envelopes[0], envelopes[1]))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.name, err)
	}

	d.debug.Sequence(d.name+"_envelope0", envelopes[0])
	d.debug.Sequence(d.name+"_envelope1", envelopes[1])
	d.debug.Sequence(d.name+"_soft", dec.soft)
	d.debug.Sequence(d.name+"_points", debug.Ints(dec.points))
	d.debug.Sequence(d.name+"_symbols", debug.Symbols(dec.symbols))

	d.logger.Debug("Demodulated channel", slog.String("name", d.name), slog.Int("symbols", len(dec.symbols)))

	return dec.symbols, nil
}

func (d *BFSKDemodulator) AssembleSymbols(offset int, lists [][]uint8) []uint8 {
	return assembleSequential(offset, lists)
}

// OFDMDemodulator runs one BFSK detector per sub-channel on the same input.
type OFDMDemodulator struct {
	params   Params
	channels []dsp.Channel
	subs     []*BFSKDemodulator
	workers  int
}

// NewOFDMDemodulator tiles [min, max] exactly like NewOFDMModulator.
func NewOFDMDemodulator(params Params, min, max, bandwidthDivisor float64, det Detector, opts Options) (*OFDMDemodulator, error) {
	if err := params.binary(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	channels, err := subChannels(params, min, max, bandwidthDivisor)
	if err != nil {
		return nil, err
	}

	d := &OFDMDemodulator{
		params:   params,
		channels: channels,
		subs:     make([]*BFSKDemodulator, len(channels)),
		workers:  opts.Workers,
	}
	for i, ch := range channels {
		d.subs[i], err = newBFSKDemodulator(fmt.Sprintf("ofdm_ch%02d", i), params, ch.Carrier, det, opts)
		if err != nil {
			return nil, fmt.Errorf("channel %d at %g Hz: %w", i, ch.Carrier, err)
		}
	}

	return d, nil
}

func (d *OFDMDemodulator) Params() Params {
	return d.params
}

func (d *OFDMDemodulator) Channels() []dsp.Channel {
	return append([]dsp.Channel(nil), d.channels...)
}

func (d *OFDMDemodulator) Demodulate(ctx context.Context, samples []float64) ([][]uint8, error) {
	lists := make([][]uint8, len(d.subs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, sub := range d.subs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			symbols, err := sub.demodulate(samples)
			if err != nil {
				return fmt.Errorf("channel %d: %w", i, err)
			}
			lists[i] = symbols
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return lists, nil
}

// AssembleSymbols interleaves the channel lists column by column from offset,
// undoing the round-robin split, and stops at the shortest list.
func (d *OFDMDemodulator) AssembleSymbols(offset int, lists [][]uint8) []uint8 {
	return Interleave(offset, lists)
}

// Interleave emits lists[0][i], lists[1][i], ... for i from offset up to the
// length of the shortest list.
func Interleave(offset int, lists [][]uint8) []uint8 {
	if len(lists) == 0 || offset < 0 {
		return nil
	}
	n := len(lists[0])
	for _, l := range lists[1:] {
		n = min(n, len(l))
	}
	if offset >= n {
		return nil
	}

	out := make([]uint8, 0, (n-offset)*len(lists))
	for i := offset; i < n; i++ {
		for _, l := range lists {
			out = append(out, l[i])
		}
	}
	return out
}

// FHSSDemodulator detects energy on every hop frequency at once, without
// knowledge of the hop sequence.
type FHSSDemodulator struct {
	params   Params
	channels []dsp.Channel
	branches []*dsp.Filter
	envelope *envelope
	recovery *recovery
	workers  int
	debug    debug.Sink
	logger   *slog.Logger
}

// NewFHSSDemodulator builds a symbol-0 and symbol-1 filter for every hop
// channel; filter 2i belongs to symbol 0 and 2i+1 to symbol 1 of channel i.
func NewFHSSDemodulator(params Params, min, max, bandwidthDivisor float64, det Detector, opts Options) (*FHSSDemodulator, error) {
	if err := params.binary(); err != nil {
		return nil, err
	}
	if err := det.Validate(params); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	opts = opts.withDefaults()

	channels, err := subChannels(params, min, max, bandwidthDivisor)
	if err != nil {
		return nil, err
	}

	d := &FHSSDemodulator{
		params:   params,
		channels: channels,
		branches: make([]*dsp.Filter, 0, 2*len(channels)),
		workers:  opts.Workers,
		debug:    opts.Debug,
		logger:   opts.Logger,
	}

	var lowest, top float64
	for i, ch := range channels {
		plan, err := dsp.PlanFSK(params.SamplesPerSymbol, params.SampleRate, ch.Carrier, params.SeparationIntervals)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			lowest = plan.Tone0()
		}
		top = ch.Carrier + plan.Bandwidth/2

		for symbol, tone := range []float64{plan.Tone0(), plan.Tone1()} {
			branch, err := toneFilter(params, det, tone, plan.Separation())
			if err != nil {
				return nil, fmt.Errorf("channel %d symbol %d filter: %w", i, symbol, err)
			}
			d.branches = append(d.branches, branch)
		}
	}

	if d.envelope, err = newEnvelope(params, det, top, lowest); err != nil {
		return nil, err
	}
	if d.recovery, err = newRecovery(params, det); err != nil {
		return nil, err
	}

	d.logger.Debug("FHSS demodulator ready",
		slog.Int("channels", len(channels)),
		slog.Int("branches", len(d.branches)))

	return d, nil
}

func (d *FHSSDemodulator) Params() Params {
	return d.params
}

func (d *FHSSDemodulator) Channels() []dsp.Channel {
	return append([]dsp.Channel(nil), d.channels...)
}

func (d *FHSSDemodulator) Demodulate(ctx context.Context, samples []float64) ([][]uint8, error) {
	padded, err := pad(d.params, samples)
	if err != nil {
		return nil, err
	}

	envelopes := make([][]float64, len(d.branches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, branch := range d.branches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := d.envelope.detect(padded, branch)
			if err != nil {
				return fmt.Errorf("branch %d: %w", i, err)
			}
			envelopes[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var zeros, ones [][]float64
	for i, env := range envelopes {
		if i%2 == 0 {
			zeros = append(zeros, env)
		} else {
			ones = append(ones, env)
		}
	}

	// A common scale keeps hop channels that never carried a symbol at their
	// true, negligible level.
	combined0, combined1 := dsp.MaxMagnitude(zeros...), dsp.MaxMagnitude(ones...)
	peak := max(dsp.Peak(combined0), dsp.Peak(combined1))
	if peak > 0 {
		for i := range combined0 {
			combined0[i] /= peak
			combined1[i] /= peak
		}
	}

	dec, err := d.recovery.decide(dsp.MergeBySign(combined0, combined1))
	if err != nil {
		return nil, fmt.Errorf("fhss: %w", err)
	}

	d.debug.Sequence("fhss_envelope0", combined0)
	d.debug.Sequence("fhss_envelope1", combined1)
	d.debug.Sequence("fhss_soft", dec.soft)
	d.debug.Sequence("fhss_points", debug.Ints(dec.points))
	d.debug.Sequence("fhss_symbols", debug.Symbols(dec.symbols))

	d.logger.Debug("Demodulated hops", slog.Int("symbols", len(dec.symbols)))

	return [][]uint8{dec.symbols}, nil
}

func (d *FHSSDemodulator) AssembleSymbols(offset int, lists [][]uint8) []uint8 {
	return assembleSequential(offset, lists)
}
