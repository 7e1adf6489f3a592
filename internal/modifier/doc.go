// Package modifier holds signal stages applied after modulation on the
// transmit path and before demodulation on the receive path.
package modifier
