package pipeline

import (
	"fmt"

	"github.com/skypro1111/covertaudio/internal/audio"
	"github.com/skypro1111/covertaudio/internal/dsp"
)

// ChannelMode selects what the extra channels of a written WAV file carry.
type ChannelMode string

const (
	// ChannelCopy puts the signal on every channel.
	ChannelCopy ChannelMode = "copy"
	// ChannelBlank puts the signal on channel 0 and silence elsewhere.
	ChannelBlank ChannelMode = "blank"
)

// WAVOptions controls WAV framing.
type WAVOptions struct {
	Channels int                `yaml:"channels" json:"channels"`
	Mode     ChannelMode        `yaml:"channel_mode" json:"channel_mode"`
	Format   audio.SampleFormat `yaml:"-" json:"-"`
	// Channel is the channel ReadWAV demodulates.
	Channel int `yaml:"read_channel" json:"read_channel"`
}

// Validate checks the channel layout.
func (o WAVOptions) Validate() error {
	if o.Channels < 1 {
		return fmt.Errorf("channels must be at least 1, got %d", o.Channels)
	}
	if o.Mode != ChannelCopy && o.Mode != ChannelBlank {
		return fmt.Errorf("channel_mode must be 'copy' or 'blank', got '%s'", o.Mode)
	}
	if o.Channel < 0 {
		return fmt.Errorf("read_channel cannot be negative, got %d", o.Channel)
	}
	return nil
}

// WriteWAV peak normalises samples and lays them out over opts.Channels channels.
func WriteWAV(samples []float64, sampleRate float64, opts WAVOptions) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	signal := dsp.Normalize(samples)
	channels := make([][]float64, opts.Channels)
	channels[0] = signal
	for i := 1; i < opts.Channels; i++ {
		if opts.Mode == ChannelCopy {
			channels[i] = signal
		} else {
			channels[i] = make([]float64, len(signal))
		}
	}

	format := opts.Format
	if format == 0 {
		format = audio.PCM16
	}
	return audio.EncodeWAV(channels, int(sampleRate), format)
}

// ReadWAV decodes a WAV file and returns the peak normalised samples of one
// channel. The file must be sampled at sampleRate.
func ReadWAV(data []byte, channel int, sampleRate float64) ([]float64, error) {
	decoded, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, err
	}
	if float64(decoded.SampleRate) != sampleRate {
		return nil, fmt.Errorf("sample rate mismatch: got %d Hz, expected %g Hz", decoded.SampleRate, sampleRate)
	}
	if channel < 0 || channel >= len(decoded.Channels) {
		return nil, fmt.Errorf("channel %d out of range, file has %d channels", channel, len(decoded.Channels))
	}
	return dsp.Normalize(decoded.Channels[channel]), nil
}
