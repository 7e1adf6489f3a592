package modem

import (
	"fmt"
	"math"

	"github.com/skypro1111/covertaudio/internal/dsp"
)

// Filter ripple and rejection used throughout the detector.
const (
	detectorPassAtten = 0.1
	detectorStopAtten = 80
)

// Detector configures the envelope detector of the demodulators.
type Detector struct {
	// SymbolBandwidth is the passband width around each tone and the cutoff
	// of the envelope lowpass, in Hz.
	SymbolBandwidth float64 `yaml:"symbol_frequency_bandwidth" json:"symbol_frequency_bandwidth"`
	// DecimatedSamplesPerSymbol is the envelope resolution after decimation.
	DecimatedSamplesPerSymbol int `yaml:"decimated_samples_per_symbol" json:"decimated_samples_per_symbol"`
}

// Validate checks d against the modulation parameters it will run with.
func (d Detector) Validate(params Params) error {
	if d.SymbolBandwidth <= 0 {
		return fmt.Errorf("symbol_frequency_bandwidth must be positive, got %g", d.SymbolBandwidth)
	}
	if d.DecimatedSamplesPerSymbol < 1 || d.DecimatedSamplesPerSymbol > 2*params.SamplesPerSymbol {
		return fmt.Errorf("decimated_samples_per_symbol must be between 1 and %d, got %d",
			2*params.SamplesPerSymbol, d.DecimatedSamplesPerSymbol)
	}
	if (2*params.SamplesPerSymbol)%d.DecimatedSamplesPerSymbol != 0 {
		return fmt.Errorf("decimated_samples_per_symbol must divide %d, got %d",
			2*params.SamplesPerSymbol, d.DecimatedSamplesPerSymbol)
	}
	return nil
}

// decimation is the factor between the interpolated and the decimated rate.
func (d Detector) decimation(params Params) int {
	return (2 * params.SamplesPerSymbol) / d.DecimatedSamplesPerSymbol
}

// toneFilter isolates one tone, rejecting everything a tone separation away.
func toneFilter(params Params, det Detector, tone, separation float64) (*dsp.Filter, error) {
	half := det.SymbolBandwidth / 2
	if half >= separation {
		return nil, fmt.Errorf("%w: symbol bandwidth %g Hz must be below twice the tone separation %g Hz",
			ErrUnsupported, det.SymbolBandwidth, 2*separation)
	}
	return dsp.DesignBandpass(tone-separation, tone-half, tone+half, tone+separation,
		detectorPassAtten, detectorStopAtten, params.SampleRate)
}

// envelope is the front half of the detector: interpolate a tone-filtered
// branch to twice the rate, square it, lowpass the energy and decimate.
// Normalisation is left to the caller.
type envelope struct {
	interpolator *dsp.Filter
	smoother     *dsp.Filter
	decimation   int
}

// newEnvelope builds the stages for a band whose upper edge is top. The gap
// between top and Nyquist sets both transition widths.
func newEnvelope(params Params, det Detector, top, lowestTone float64) (*envelope, error) {
	fs := params.SampleRate
	gap := math.Min(2*(fs/2-top), fs/2)
	if gap <= 0 {
		return nil, fmt.Errorf("%w: band edge %g Hz reaches Nyquist %g Hz", ErrUnsupported, top, fs/2)
	}
	// The squared signal carries a component at twice each tone that the
	// smoother must reject
	if det.SymbolBandwidth+gap >= 2*lowestTone {
		return nil, fmt.Errorf("%w: tone %g Hz is too low for envelope detection at %g Hz", ErrUnsupported, lowestTone, fs)
	}

	interpolator, err := dsp.DesignLowpass(fs/2, fs/2+gap, detectorPassAtten, detectorStopAtten, 2*fs)
	if err != nil {
		return nil, fmt.Errorf("interpolation filter: %w", err)
	}
	smoother, err := dsp.DesignLowpass(det.SymbolBandwidth, det.SymbolBandwidth+gap, detectorPassAtten, detectorStopAtten, 2*fs)
	if err != nil {
		return nil, fmt.Errorf("envelope filter: %w", err)
	}

	return &envelope{
		interpolator: interpolator,
		smoother:     smoother,
		decimation:   det.decimation(params),
	}, nil
}

func (e *envelope) detect(samples []float64, branch *dsp.Filter) ([]float64, error) {
	filtered, err := branch.ApplyAligned(samples)
	if err != nil {
		return nil, err
	}
	interpolated, err := dsp.Interpolate2x(filtered, e.interpolator)
	if err != nil {
		return nil, err
	}
	smoothed, err := e.smoother.ApplyAligned(dsp.Square(interpolated))
	if err != nil {
		return nil, err
	}
	return dsp.Decimate(smoothed, e.decimation), nil
}

// recovery is the back half of the detector: it smooths the merged soft
// symbol track over one symbol, removes its bias, interpolates it and picks
// one decision point per symbol with Gardner.
type recovery struct {
	window           int
	interpolator     *dsp.Filter
	samplesPerSymbol int
}

func newRecovery(params Params, det Detector) (*recovery, error) {
	rate := 2 * params.SampleRate / float64(det.decimation(params))
	interpolator, err := dsp.DesignLowpass(rate/2, rate/2+rate/4, detectorPassAtten, detectorStopAtten, 2*rate)
	if err != nil {
		return nil, fmt.Errorf("recovery filter: %w", err)
	}

	window := params.SymbolExpansionFactor * det.DecimatedSamplesPerSymbol
	return &recovery{
		window:           window,
		interpolator:     interpolator,
		samplesPerSymbol: 2 * window,
	}, nil
}

// decision holds the intermediate tracks of one recovery run.
type decision struct {
	soft    []float64
	points  []int
	symbols []uint8
}

func (r *recovery) decide(merged []float64) (decision, error) {
	unbiased := dsp.RemoveBias(dsp.MovingAverage(merged, r.window))
	interpolated, err := dsp.Interpolate2x(unbiased, r.interpolator)
	if err != nil {
		return decision{}, err
	}
	soft := dsp.Normalize(interpolated)

	points := Gardner(soft, r.samplesPerSymbol)
	symbols := make([]uint8, len(points))
	for i, p := range points {
		if soft[p] < 0 {
			symbols[i] = 1
		}
	}

	return decision{soft: soft, points: points, symbols: symbols}, nil
}
