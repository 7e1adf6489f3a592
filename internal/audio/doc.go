// Package audio reads and writes WAV files. It handles 16-bit PCM and 32-bit
// float data with any number of channels and exposes samples as float64.
package audio
