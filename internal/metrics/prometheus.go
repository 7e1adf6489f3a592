package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the modem
type Metrics struct {
	// Transmit metrics
	Transmissions    prometheus.Counter
	SymbolsModulated prometheus.Counter
	PayloadBytesSent prometheus.Counter
	TransmitDuration prometheus.Histogram

	// Receive metrics
	Receptions           prometheus.Counter
	SymbolsDemodulated   prometheus.Counter
	PayloadBytesReceived prometheus.Counter
	SyncFailures         prometheus.Counter
	FlaggedBytes         prometheus.Counter
	UncorrectableBlocks  prometheus.Counter
	ReceiveDuration      prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Transmit metrics
		Transmissions: factory.NewCounter(prometheus.CounterOpts{
			Name: "covertaudio_transmissions_total",
			Help: "Total number of payloads transmitted",
		}),
		SymbolsModulated: factory.NewCounter(prometheus.CounterOpts{
			Name: "covertaudio_symbols_modulated_total",
			Help: "Total number of payload symbols modulated",
		}),
		PayloadBytesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "covertaudio_payload_bytes_sent_total",
			Help: "Total number of payload bytes transmitted",
		}),
		TransmitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "covertaudio_transmit_duration_seconds",
			Help:    "Time spent encoding and modulating a payload",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),

		// Receive metrics
		Receptions: factory.NewCounter(prometheus.CounterOpts{
			Name: "covertaudio_receptions_total",
			Help: "Total number of payloads received",
		}),
		SymbolsDemodulated: factory.NewCounter(prometheus.CounterOpts{
			Name: "covertaudio_symbols_demodulated_total",
			Help: "Total number of payload symbols demodulated",
		}),
		PayloadBytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "covertaudio_payload_bytes_received_total",
			Help: "Total number of payload bytes recovered",
		}),
		SyncFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "covertaudio_sync_failures_total",
			Help: "Total number of receptions where the sentinel was not found",
		}),
		FlaggedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "covertaudio_flagged_bytes_total",
			Help: "Total number of received bytes flagged as suspect",
		}),
		UncorrectableBlocks: factory.NewCounter(prometheus.CounterOpts{
			Name: "covertaudio_uncorrectable_blocks_total",
			Help: "Total number of codec blocks that could not be corrected",
		}),
		ReceiveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "covertaudio_receive_duration_seconds",
			Help:    "Time spent demodulating and decoding a signal",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "covertaudio_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "covertaudio_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "covertaudio_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordTransmit records a finished transmission
func (m *Metrics) RecordTransmit(symbols, payloadBytes int, seconds float64) {
	m.Transmissions.Inc()
	m.SymbolsModulated.Add(float64(symbols))
	m.PayloadBytesSent.Add(float64(payloadBytes))
	m.TransmitDuration.Observe(seconds)
}

// RecordReceive records a reception that found the sentinel
func (m *Metrics) RecordReceive(symbols, payloadBytes, flaggedBytes, uncorrectableBlocks int, seconds float64) {
	m.Receptions.Inc()
	m.SymbolsDemodulated.Add(float64(symbols))
	m.PayloadBytesReceived.Add(float64(payloadBytes))
	m.FlaggedBytes.Add(float64(flaggedBytes))
	m.UncorrectableBlocks.Add(float64(uncorrectableBlocks))
	m.ReceiveDuration.Observe(seconds)
}

// RecordSyncFailure increments the sync failure counter
func (m *Metrics) RecordSyncFailure() {
	m.SyncFailures.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
