package debug

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skypro1111/covertaudio/internal/audio"
)

func TestDirWritesSignalsAndSequences(t *testing.T) {
	base := t.TempDir()
	sink, err := NewDir(base, "run-1", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "run-1"), sink.Root())

	sink.Signal("bfsk envelope/0", []float64{0, 0.5, -0.5}, 48000)
	sink.Sequence("points", Ints([]int{3, 7, 11}))

	written := sink.Written()
	require.Len(t, written, 2)
	assert.Equal(t, filepath.Join(base, "run-1", "bfsk_envelope_0.wav"), written[0])
	assert.Equal(t, filepath.Join(base, "run-1", "points.dat"), written[1])

	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	decoded, err := audio.DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, 48000, int(decoded.SampleRate))
	assert.Equal(t, audio.Float32, decoded.Format)
	assert.Equal(t, []float64{0, 0.5, -0.5}, decoded.Channels[0])

	seq, err := os.ReadFile(written[1])
	require.NoError(t, err)
	assert.Equal(t, "3\n7\n11\n", string(seq))
}

func TestDirLogsFailures(t *testing.T) {
	sink, err := NewDir(t.TempDir(), "run", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(sink.Root()))

	sink.Sequence("lost", []float64{1})
	assert.Empty(t, sink.Written())
}

func TestSymbols(t *testing.T) {
	assert.Equal(t, []float64{0, 1, 3}, Symbols([]uint8{0, 1, 3}))
	Nop{}.Signal("ignored", []float64{1}, 1)
}
