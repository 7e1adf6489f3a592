// Package codec implements the block codecs applied to payloads before
// modulation: Manchester line coding, Reed-Solomon forward error correction
// and a gold-code scrambler. Decoders propagate a per-byte error mask so that
// symbols flagged by one stage become erasures for the next.
package codec
