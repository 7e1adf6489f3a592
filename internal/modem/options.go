package modem

import (
	"log/slog"
	"math/rand/v2"
	"runtime"

	"github.com/skypro1111/covertaudio/internal/debug"
)

// Options carries the collaborators of a modem. Zero values are replaced with
// defaults: a discarding logger, the Nop debug sink, GOMAXPROCS workers and a
// randomly seeded generator.
type Options struct {
	Logger  *slog.Logger
	Debug   debug.Sink
	Workers int
	Rand    *rand.Rand
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Debug == nil {
		o.Debug = debug.Nop{}
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o
}
