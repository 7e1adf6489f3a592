// Package pipeline wires codecs, modems, frame sync and modifiers into a
// Transmitter that turns a payload into samples and a Receiver that turns
// samples back into the payload.
package pipeline
