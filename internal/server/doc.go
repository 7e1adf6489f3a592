// Package server exposes the modem over HTTP. POST /transmit turns a payload
// into a WAV file and POST /receive recovers a payload from one. Health,
// config, stats and Prometheus endpoints report on both.
package server
