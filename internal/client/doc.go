// Package client is an HTTP client for the covertaudio server's /transmit and
// /receive endpoints, with bounded concurrency and retries on transient errors.
package client
