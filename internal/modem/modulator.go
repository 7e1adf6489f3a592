package modem

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/skypro1111/covertaudio/internal/dsp"
)

// Modulator turns symbols into samples. The sentinel is emitted ahead of the
// payload so the receiver can find the frame.
type Modulator interface {
	Modulate(ctx context.Context, symbols, sentinel []uint8) ([]float64, error)
	Channels() []dsp.Channel
	Params() Params
}

// BFSKModulator keys between two tones around one carrier.
type BFSKModulator struct {
	params Params
	plan   dsp.FSKPlan
	waves  [2][]float64
}

// NewBFSKModulator precomputes both symbol waveforms for carrier.
func NewBFSKModulator(params Params, carrier float64) (*BFSKModulator, error) {
	if err := params.binary(); err != nil {
		return nil, err
	}

	plan, err := dsp.PlanFSK(params.SamplesPerSymbol, params.SampleRate, carrier, params.SeparationIntervals)
	if err != nil {
		return nil, err
	}

	m := &BFSKModulator{params: params, plan: plan}
	for symbol, freq := range []float64{plan.Tone0(), plan.Tone1()} {
		tone, err := dsp.SynthesizeTones(params.SymbolLength(), params.SampleRate, []float64{freq})
		if err != nil {
			return nil, fmt.Errorf("symbol %d tone: %w", symbol, err)
		}
		// Only the first samplesPerSymbol carry the tone, the rest stays silent
		wave := make([]float64, params.SymbolLength())
		copy(wave, tone[:params.SamplesPerSymbol])
		m.waves[symbol] = wave
	}

	return m, nil
}

// Plan returns the tone plan of the carrier.
func (m *BFSKModulator) Plan() dsp.FSKPlan {
	return m.plan
}

func (m *BFSKModulator) Params() Params {
	return m.params
}

func (m *BFSKModulator) Channels() []dsp.Channel {
	return []dsp.Channel{{Carrier: m.plan.Carrier, Bandwidth: m.plan.Bandwidth}}
}

// waveform returns the shared waveform of symbol; callers must not modify it.
func (m *BFSKModulator) waveform(symbol uint8) []float64 {
	if symbol == 0 {
		return m.waves[0]
	}
	return m.waves[1]
}

func (m *BFSKModulator) Modulate(ctx context.Context, symbols, sentinel []uint8) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.modulate(append(append([]uint8(nil), sentinel...), symbols...)), nil
}

func (m *BFSKModulator) modulate(symbols []uint8) []float64 {
	out := make([]float64, 0, len(symbols)*m.params.SymbolLength())
	for _, s := range symbols {
		out = append(out, m.waveform(s)...)
	}
	return out
}

// subChannels tiles the range with the bandwidth of a baseband plan divided
// by bandwidthDivisor.
func subChannels(params Params, min, max, bandwidthDivisor float64) ([]dsp.Channel, error) {
	if bandwidthDivisor <= 0 {
		return nil, fmt.Errorf("%w: bandwidth divisor must be positive, got %g", ErrUnsupported, bandwidthDivisor)
	}
	plan, err := dsp.PlanFSK(params.SamplesPerSymbol, params.SampleRate, 0, params.SeparationIntervals)
	if err != nil {
		return nil, err
	}

	channels := dsp.TileChannels(min, max, plan.Bandwidth/bandwidthDivisor)
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: [%g, %g] Hz with %g Hz channels", ErrNoChannels, min, max, plan.Bandwidth/bandwidthDivisor)
	}
	return channels, nil
}

// OFDMModulator spreads the payload round-robin over parallel BFSK
// sub-carriers, each confined to its band by a bandpass filter.
type OFDMModulator struct {
	params   Params
	channels []dsp.Channel
	subs     []*BFSKModulator
	filters  []*dsp.Filter
	workers  int
}

// NewOFDMModulator tiles [min, max] and builds one modulator and filter per sub-band.
func NewOFDMModulator(params Params, min, max, bandwidthDivisor float64, opts Options) (*OFDMModulator, error) {
	if err := params.binary(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	channels, err := subChannels(params, min, max, bandwidthDivisor)
	if err != nil {
		return nil, err
	}

	m := &OFDMModulator{
		params:   params,
		channels: channels,
		subs:     make([]*BFSKModulator, len(channels)),
		filters:  make([]*dsp.Filter, len(channels)),
		workers:  opts.Workers,
	}
	for i, ch := range channels {
		if m.subs[i], err = NewBFSKModulator(params, ch.Carrier); err != nil {
			return nil, fmt.Errorf("channel %d at %g Hz: %w", i, ch.Carrier, err)
		}
		m.filters[i], err = dsp.DesignBandpass(ch.Low()-ch.Bandwidth/2, ch.Low(), ch.High(), ch.High()+ch.Bandwidth/2,
			1, 80, params.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("channel %d at %g Hz: %w", i, ch.Carrier, err)
		}
	}

	opts.Logger.Debug("OFDM modulator ready",
		slog.Int("channels", len(channels)),
		slog.Float64("channel_bandwidth", channels[0].Bandwidth),
		slog.Int("filter_taps", m.filters[0].Len()))

	return m, nil
}

func (m *OFDMModulator) Params() Params {
	return m.params
}

func (m *OFDMModulator) Channels() []dsp.Channel {
	return append([]dsp.Channel(nil), m.channels...)
}

// Split broadcasts every sentinel symbol to all n channels and deals the
// payload out round-robin, returning one symbol stream per channel.
func Split(symbols, sentinel []uint8, n int) [][]uint8 {
	combined := make([]uint8, 0, len(sentinel)*n+len(symbols))
	for _, s := range sentinel {
		for range n {
			combined = append(combined, s)
		}
	}
	combined = append(combined, symbols...)

	streams := make([][]uint8, n)
	for i, s := range combined {
		streams[i%n] = append(streams[i%n], s)
	}
	return streams
}

func (m *OFDMModulator) Modulate(ctx context.Context, symbols, sentinel []uint8) ([]float64, error) {
	streams := Split(symbols, sentinel, len(m.channels))
	outputs := make([][]float64, len(m.channels))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i := range m.channels {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(streams[i]) == 0 {
				return nil
			}
			filtered, err := m.filters[i].ApplyAligned(m.subs[i].modulate(streams[i]))
			if err != nil {
				return fmt.Errorf("channel %d: %w", i, err)
			}
			outputs[i] = filtered
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return dsp.Sum(outputs...), nil
}

// FHSSModulator hops every symbol to a uniformly random sub-carrier.
type FHSSModulator struct {
	params   Params
	channels []dsp.Channel
	subs     []*BFSKModulator

	mu  sync.Mutex
	rng *rand.Rand
}

// NewFHSSModulator tiles [min, max] like OFDM and draws hops from opts.Rand.
func NewFHSSModulator(params Params, min, max, bandwidthDivisor float64, opts Options) (*FHSSModulator, error) {
	if err := params.binary(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	channels, err := subChannels(params, min, max, bandwidthDivisor)
	if err != nil {
		return nil, err
	}

	m := &FHSSModulator{
		params:   params,
		channels: channels,
		subs:     make([]*BFSKModulator, len(channels)),
		rng:      opts.Rand,
	}
	for i, ch := range channels {
		if m.subs[i], err = NewBFSKModulator(params, ch.Carrier); err != nil {
			return nil, fmt.Errorf("channel %d at %g Hz: %w", i, ch.Carrier, err)
		}
	}

	opts.Logger.Debug("FHSS modulator ready", slog.Int("channels", len(channels)))

	return m, nil
}

func (m *FHSSModulator) Params() Params {
	return m.params
}

func (m *FHSSModulator) Channels() []dsp.Channel {
	return append([]dsp.Channel(nil), m.channels...)
}

func (m *FHSSModulator) Modulate(ctx context.Context, symbols, sentinel []uint8) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all := append(append([]uint8(nil), sentinel...), symbols...)
	out := make([]float64, 0, len(all)*m.params.SymbolLength())

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range all {
		hop := m.rng.IntN(len(m.subs))
		out = append(out, m.subs[hop].waveform(s)...)
	}
	return out, nil
}
