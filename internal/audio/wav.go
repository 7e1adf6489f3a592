package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidWAV is returned for data that is not a supported WAV file.
var ErrInvalidWAV = errors.New("audio: invalid WAV data")

// SampleFormat is the WAV audio format code.
type SampleFormat uint16

const (
	PCM16   SampleFormat = 1 // 16-bit signed integer
	Float32 SampleFormat = 3 // 32-bit IEEE float
)

func (f SampleFormat) String() string {
	switch f {
	case PCM16:
		return "pcm16"
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("format(%d)", uint16(f))
	}
}

// ParseSampleFormat parses "pcm16" or "float32".
func ParseSampleFormat(s string) (SampleFormat, error) {
	switch strings.ToLower(s) {
	case "pcm16":
		return PCM16, nil
	case "float32":
		return Float32, nil
	default:
		return 0, fmt.Errorf("sample format must be 'pcm16' or 'float32', got '%s'", s)
	}
}

func (f SampleFormat) bitsPerSample() uint16 {
	if f == Float32 {
		return 32
	}
	return 16
}

// WAVHeader represents the canonical 44 byte header written by EncodeWAV
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16
	AudioFormat   uint16  // 1 for PCM, 3 for IEEE float
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// Audio is decoded WAV content, one slice of samples in [-1, 1] per channel.
type Audio struct {
	SampleRate int
	Format     SampleFormat
	Channels   [][]float64
}

// Frames returns the number of samples per channel.
func (a *Audio) Frames() int {
	if len(a.Channels) == 0 {
		return 0
	}
	return len(a.Channels[0])
}

// EncodeWAV interleaves equally long channels into a WAV file. PCM16 output
// clips samples to [-1, 1].
func EncodeWAV(channels [][]float64, sampleRate int, format SampleFormat) ([]byte, error) {
	if len(channels) == 0 || len(channels[0]) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio samples")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if format != PCM16 && format != Float32 {
		return nil, fmt.Errorf("unsupported audio format: %s", format)
	}
	frames := len(channels[0])
	for i, ch := range channels {
		if len(ch) != frames {
			return nil, fmt.Errorf("channel %d has %d samples, expected %d", i, len(ch), frames)
		}
	}

	// Calculate sizes
	numChannels := uint16(len(channels))
	bitsPerSample := format.bitsPerSample()
	blockAlign := numChannels * bitsPerSample / 8
	dataSize := uint32(frames) * uint32(blockAlign)

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   uint16(format),
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+int(dataSize)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	var samples any
	switch format {
	case PCM16:
		pcm := make([]int16, 0, frames*len(channels))
		for i := 0; i < frames; i++ {
			for _, ch := range channels {
				pcm = append(pcm, toPCM16(ch[i]))
			}
		}
		samples = pcm
	case Float32:
		fl := make([]float32, 0, frames*len(channels))
		for i := 0; i < frames; i++ {
			for _, ch := range channels {
				fl = append(fl, float32(ch[i]))
			}
		}
		samples = fl
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return buf.Bytes(), nil
}

// EncodeFloatWAV encodes channels as 32-bit float.
func EncodeFloatWAV(channels [][]float64, sampleRate int) ([]byte, error) {
	return EncodeWAV(channels, sampleRate, Float32)
}

func toPCM16(v float64) int16 {
	return int16(math.Round(math.Max(-1, math.Min(1, v)) * math.MaxInt16))
}

// wavFormat is the fmt chunk shared by every supported layout.
type wavFormat struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// extensibleFormat is the WAVE_FORMAT_EXTENSIBLE tag; the real format is in
// the first two bytes of the sub-format GUID.
const extensibleFormat = 0xFFFE

// parseChunks walks the RIFF chunks and returns the format and the data payload.
func parseChunks(data []byte) (wavFormat, []byte, error) {
	var format wavFormat
	if len(data) < 12 {
		return format, nil, fmt.Errorf("%w: need at least 12 bytes, got %d", ErrInvalidWAV, len(data))
	}
	if string(data[0:4]) != "RIFF" {
		return format, nil, fmt.Errorf("%w: missing RIFF header", ErrInvalidWAV)
	}
	if string(data[8:12]) != "WAVE" {
		return format, nil, fmt.Errorf("%w: missing WAVE format", ErrInvalidWAV)
	}

	var haveFormat bool
	for pos := 12; pos+8 <= len(data); {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := data[pos+8 : min(pos+8+size, len(data))]

		switch id {
		case "fmt ":
			if len(body) < 16 {
				return format, nil, fmt.Errorf("%w: fmt chunk too short", ErrInvalidWAV)
			}
			if err := binary.Read(bytes.NewReader(body), binary.LittleEndian, &format); err != nil {
				return format, nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			if format.AudioFormat == extensibleFormat && len(body) >= 26 {
				format.AudioFormat = binary.LittleEndian.Uint16(body[24:26])
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return format, nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			return format, body, nil
		}

		// Chunks are padded to even sizes
		pos += 8 + size + size%2
	}

	if !haveFormat {
		return format, nil, fmt.Errorf("%w: missing fmt chunk", ErrInvalidWAV)
	}
	return format, nil, fmt.Errorf("%w: missing data chunk", ErrInvalidWAV)
}

// DecodeWAV decodes PCM16 or float32 WAV data of any channel count.
func DecodeWAV(data []byte) (*Audio, error) {
	format, payload, err := parseChunks(data)
	if err != nil {
		return nil, err
	}

	sf := SampleFormat(format.AudioFormat)
	switch {
	case sf == PCM16 && format.BitsPerSample == 16:
	case sf == Float32 && format.BitsPerSample == 32:
	default:
		return nil, fmt.Errorf("unsupported audio format: %s with %d bits per sample", sf, format.BitsPerSample)
	}
	if format.NumChannels == 0 {
		return nil, fmt.Errorf("%w: zero channels", ErrInvalidWAV)
	}
	if format.SampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: 0")
	}

	numChannels := int(format.NumChannels)
	frameSize := numChannels * int(format.BitsPerSample) / 8
	frames := len(payload) / frameSize
	if frames == 0 {
		return nil, fmt.Errorf("no audio data found")
	}

	channels := make([][]float64, numChannels)
	for c := range channels {
		channels[c] = make([]float64, frames)
	}

	r := bytes.NewReader(payload[:frames*frameSize])
	switch sf {
	case PCM16:
		pcm := make([]int16, frames*numChannels)
		if err := binary.Read(r, binary.LittleEndian, pcm); err != nil {
			return nil, fmt.Errorf("failed to read audio samples: %w", err)
		}
		for i, v := range pcm {
			channels[i%numChannels][i/numChannels] = float64(v) / (math.MaxInt16 + 1)
		}
	case Float32:
		fl := make([]float32, frames*numChannels)
		if err := binary.Read(r, binary.LittleEndian, fl); err != nil {
			return nil, fmt.Errorf("failed to read audio samples: %w", err)
		}
		for i, v := range fl {
			channels[i%numChannels][i/numChannels] = float64(v)
		}
	}

	return &Audio{SampleRate: int(format.SampleRate), Format: sf, Channels: channels}, nil
}

// ValidateWAV validates a WAV file format without decoding the audio data
func ValidateWAV(data []byte) error {
	_, _, err := parseChunks(data)
	return err
}

// GetWAVDuration calculates the duration of a WAV file in seconds
func GetWAVDuration(data []byte) (float64, error) {
	info, err := GetWAVInfo(data)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

// WAVInfo is basic information about a WAV file
type WAVInfo struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Format        string  `json:"format"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
	NumSamples    uint32  `json:"num_samples"`
}

// GetWAVInfo extracts metadata from a WAV file. NumSamples counts frames,
// one sample per channel.
func GetWAVInfo(data []byte) (*WAVInfo, error) {
	format, payload, err := parseChunks(data)
	if err != nil {
		return nil, err
	}
	if format.SampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: 0")
	}
	if format.BlockAlign == 0 {
		return nil, fmt.Errorf("%w: zero block alignment", ErrInvalidWAV)
	}

	numSamples := uint32(len(payload)) / uint32(format.BlockAlign)
	return &WAVInfo{
		SampleRate:    format.SampleRate,
		Channels:      format.NumChannels,
		BitsPerSample: format.BitsPerSample,
		Format:        SampleFormat(format.AudioFormat).String(),
		Duration:      float64(numSamples) / float64(format.SampleRate),
		DataSize:      uint32(len(payload)),
		NumSamples:    numSamples,
	}, nil
}
