package dsp

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidFrequency is returned when a frequency plan cannot be realised.
var ErrInvalidFrequency = errors.New("dsp: invalid frequency")

// FSKPlan describes the two BFSK tones relative to a carrier.
type FSKPlan struct {
	Carrier   float64 // Hz
	Symbol0   float64 // offset of the symbol-0 tone from the carrier, Hz
	Symbol1   float64 // offset of the symbol-1 tone from the carrier, Hz
	Delta     float64 // tone resolution, sampleRate/samplesPerSymbol
	Bandwidth float64 // occupied bandwidth around the carrier
}

// Separation returns the distance between the two tones.
func (p FSKPlan) Separation() float64 {
	return p.Symbol1 - p.Symbol0
}

// Tone0 returns the absolute frequency of the symbol-0 tone.
func (p FSKPlan) Tone0() float64 {
	return p.Carrier + p.Symbol0
}

// Tone1 returns the absolute frequency of the symbol-1 tone.
func (p FSKPlan) Tone1() float64 {
	return p.Carrier + p.Symbol1
}

// PlanFSK derives the BFSK tones for a carrier. The tones sit separationIntervals
// resolution steps apart, symmetric around the carrier, and the bandwidth follows
// Carson's rule for that deviation at one symbol per samplesPerSymbol samples.
func PlanFSK(samplesPerSymbol int, sampleRate, carrier float64, separationIntervals int) (FSKPlan, error) {
	if samplesPerSymbol <= 0 {
		return FSKPlan{}, fmt.Errorf("%w: samples per symbol must be positive, got %d", ErrInvalidFrequency, samplesPerSymbol)
	}
	if sampleRate <= 0 {
		return FSKPlan{}, fmt.Errorf("%w: sample rate must be positive, got %g", ErrInvalidFrequency, sampleRate)
	}
	if separationIntervals <= 0 {
		return FSKPlan{}, fmt.Errorf("%w: separation intervals must be positive, got %d", ErrInvalidFrequency, separationIntervals)
	}
	if carrier < 0 {
		return FSKPlan{}, fmt.Errorf("%w: carrier must not be negative, got %g", ErrInvalidFrequency, carrier)
	}

	delta := sampleRate / float64(samplesPerSymbol)
	separation := float64(separationIntervals) * delta

	return FSKPlan{
		Carrier:   carrier,
		Symbol0:   -separation / 2,
		Symbol1:   separation / 2,
		Delta:     delta,
		Bandwidth: separation + 2*delta,
	}, nil
}

// Channel is a sub-band used by the multi-carrier modems.
type Channel struct {
	Carrier   float64 `json:"carrier_hz"`
	Bandwidth float64 `json:"bandwidth_hz"`
}

// Low returns the lower edge of the channel.
func (c Channel) Low() float64 { return c.Carrier - c.Bandwidth/2 }

// High returns the upper edge of the channel.
func (c Channel) High() float64 { return c.Carrier + c.Bandwidth/2 }

// CarrierFrequencies tiles [min, max] with disjoint bands of the given width and
// returns their centres. The first centre is min+bandwidth/2 and tiling stops
// before a band would cross max.
func CarrierFrequencies(min, max, bandwidth float64) []float64 {
	carriers := []float64{}
	if bandwidth <= 0 || math.IsNaN(bandwidth) || max <= min {
		return carriers
	}

	for i := 0; ; i++ {
		center := min + bandwidth/2 + float64(i)*bandwidth
		if center+bandwidth/2 > max {
			break
		}
		carriers = append(carriers, center)
	}

	return carriers
}

// TileChannels is CarrierFrequencies returning channel descriptors.
func TileChannels(min, max, bandwidth float64) []Channel {
	carriers := CarrierFrequencies(min, max, bandwidth)
	channels := make([]Channel, len(carriers))
	for i, c := range carriers {
		channels[i] = Channel{Carrier: c, Bandwidth: bandwidth}
	}
	return channels
}
