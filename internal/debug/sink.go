package debug

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"github.com/skypro1111/covertaudio/internal/audio"
)

// Sink receives intermediate signals.
type Sink interface {
	// Signal records a waveform sampled at sampleRate.
	Signal(name string, samples []float64, sampleRate float64)
	// Sequence records an arbitrary numeric sequence.
	Sequence(name string, values []float64)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Signal(string, []float64, float64) {}
func (Nop) Sequence(string, []float64)        {}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Dir writes signals as float WAV files and sequences as .dat files, one value
// per line, under a per-run directory. Write failures are logged, never returned.
type Dir struct {
	root   string
	logger *slog.Logger

	mu      sync.Mutex
	written []string
}

// NewDir creates <base>/<runID> and returns a sink writing into it.
func NewDir(base, runID string, logger *slog.Logger) (*Dir, error) {
	root := filepath.Join(base, runID)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create debug directory %s: %w", root, err)
	}
	return &Dir{root: root, logger: logger}, nil
}

// Root returns the directory dumps are written to.
func (d *Dir) Root() string {
	return d.root
}

// Written returns the paths written so far.
func (d *Dir) Written() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.written...)
}

func (d *Dir) path(name, ext string) string {
	return filepath.Join(d.root, unsafeName.ReplaceAllString(name, "_")+ext)
}

func (d *Dir) record(path string) {
	d.mu.Lock()
	d.written = append(d.written, path)
	d.mu.Unlock()
}

func (d *Dir) Signal(name string, samples []float64, sampleRate float64) {
	path := d.path(name, ".wav")

	data, err := audio.EncodeFloatWAV([][]float64{samples}, int(sampleRate))
	if err == nil {
		err = os.WriteFile(path, data, 0o644)
	}
	if err != nil {
		d.logger.Warn("Failed to write debug signal", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	d.record(path)
}

func (d *Dir) Sequence(name string, values []float64) {
	path := d.path(name, ".dat")
	if err := writeSequence(path, values); err != nil {
		d.logger.Warn("Failed to write debug sequence", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	d.record(path)
}

func writeSequence(path string, values []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for _, v := range values {
		w.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Ints converts an index sequence for Sequence.
func Ints(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

// Symbols converts a symbol sequence for Sequence.
func Symbols(values []uint8) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
