// Package modem turns symbol sequences into passband audio and back.
//
// Three modulations share a binary FSK core: BFSK on a single carrier, OFDM
// spreading a stream round-robin over tiled sub-carriers, and FHSS hopping
// each symbol to a random sub-carrier. Demodulators mirror them with a
// filter-bank envelope detector followed by Gardner timing recovery.
package modem
