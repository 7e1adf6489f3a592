// Package dsp holds the signal processing primitives used by the modem: FSK
// frequency planning and carrier tiling, inverse-FFT tone synthesis, Kaiser
// windowed FIR design, FFT convolution, envelope helpers and LFSR spreading codes.
package dsp
