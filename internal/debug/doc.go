// Package debug provides optional sinks for intermediate signals. Components
// receive a Sink at construction and dump waveforms and sequences through it;
// the Nop sink discards everything.
package debug
