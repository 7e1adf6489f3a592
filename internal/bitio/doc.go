// Package bitio provides bit-granular buffers for the modem codecs.
// A Packer appends bits MSB first and a Stream reads them back, either
// linearly or circularly. SymbolTracker slices a buffer into fixed-width symbols.
package bitio
