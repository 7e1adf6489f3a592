package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/covertaudio/internal/config"
	"github.com/skypro1111/covertaudio/internal/debug"
	"github.com/skypro1111/covertaudio/internal/framesync"
	"github.com/skypro1111/covertaudio/internal/metrics"
	"github.com/skypro1111/covertaudio/internal/pipeline"
)

// DefaultMaxBodyBytes bounds request bodies when the config leaves it unset.
const DefaultMaxBodyBytes = 32 << 20

// HTTPServer exposes the transmitter and receiver over HTTP
type HTTPServer struct {
	server   *http.Server
	logger   *slog.Logger
	config   *config.Config
	settings pipeline.Settings
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer

	transmitter *pipeline.Transmitter
	receiver    *pipeline.Receiver
	stats       *runStats

	// Server state
	startTime time.Time
}

// NewHTTPServer builds both pipelines from cfg. gatherer backs /metrics and
// should be the registry m was created with.
func NewHTTPServer(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer) (*HTTPServer, error) {
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}

	h := &HTTPServer{
		logger:    logger,
		config:    cfg,
		settings:  settings,
		metrics:   m,
		gatherer:  gatherer,
		stats:     &runStats{next: m},
		startTime: time.Now(),
	}

	opts := pipeline.Options{Logger: logger, Metrics: h.stats}
	if h.transmitter, err = pipeline.NewTransmitter(settings, opts); err != nil {
		return nil, fmt.Errorf("failed to create transmitter: %w", err)
	}
	if h.receiver, err = pipeline.NewReceiver(settings, opts); err != nil {
		return nil, fmt.Errorf("failed to create receiver: %w", err)
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h, nil
}

// Handler returns the routed handler.
func (h *HTTPServer) Handler() http.Handler {
	return h.server.Handler
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	mux.HandleFunc("/transmit", h.withMetrics("/transmit", h.handleTransmit))
	mux.HandleFunc("/receive", h.withMetrics("/receive", h.handleReceive))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		h.metrics.RecordHTTPRequest(r.Method, endpoint, strconv.Itoa(ww.statusCode), duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			switch {
			case ww.statusCode == http.StatusUnprocessableEntity:
				errorType = "sync_failed"
			case ww.statusCode >= 500:
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// pipelines returns the long-lived pipelines, or per-request ones writing
// debug dumps under runID when debugging is enabled.
func (h *HTTPServer) pipelines(runID string) (*pipeline.Transmitter, *pipeline.Receiver, error) {
	if !h.config.Debug.Enabled {
		return h.transmitter, h.receiver, nil
	}

	sink, err := debug.NewDir(h.config.Debug.Directory, runID, h.logger)
	if err != nil {
		return nil, nil, err
	}
	opts := pipeline.Options{Logger: h.logger, Metrics: h.stats, Debug: sink, RunID: runID}

	tx, err := pipeline.NewTransmitter(h.settings, opts)
	if err != nil {
		return nil, nil, err
	}
	rx, err := pipeline.NewReceiver(h.settings, opts)
	if err != nil {
		return nil, nil, err
	}
	return tx, rx, nil
}

func (h *HTTPServer) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := h.config.HTTP.MaxBodyBytes
	if limit == 0 {
		limit = DefaultMaxBodyBytes
	}
	return io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
}

func bodyStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// handleTransmit implements POST /transmit: payload in, WAV out
func (h *HTTPServer) handleTransmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := h.readBody(w, r)
	if err != nil {
		writeError(w, bodyStatus(err), err)
		return
	}
	if len(payload) == 0 {
		writeError(w, http.StatusBadRequest, pipeline.ErrEmptyPayload)
		return
	}

	tx, _, err := h.pipelines(uuid.NewString())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	transmission, err := tx.Transmit(r.Context(), payload)
	if err != nil {
		h.logger.Error("Transmit failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	wav, err := pipeline.WriteWAV(transmission.Samples, transmission.SampleRate, h.config.WAV.Options())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("X-Run-ID", transmission.RunID)
	w.Header().Set("X-Symbols", strconv.Itoa(transmission.Symbols))
	w.Header().Set("X-Duration-Seconds", strconv.FormatFloat(transmission.Duration(), 'f', 3, 64))
	w.Write(wav)
}

// handleReceive implements POST /receive: WAV in, payload out
func (h *HTTPServer) handleReceive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	channel := h.config.WAV.Channel
	if v := r.URL.Query().Get("channel"); v != "" {
		c, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid channel %q", v))
			return
		}
		channel = c
	}

	body, err := h.readBody(w, r)
	if err != nil {
		writeError(w, bodyStatus(err), err)
		return
	}

	samples, err := pipeline.ReadWAV(body, channel, h.settings.Params.SampleRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	_, rx, err := h.pipelines(uuid.NewString())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	reception, err := rx.Receive(r.Context(), samples)
	w.Header().Set("X-Run-ID", reception.RunID)
	switch {
	case errors.Is(err, framesync.ErrSentinelNotFound):
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		h.logger.Error("Receive failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Sync-Offset", strconv.Itoa(reception.Offset))
	w.Header().Set("X-Flagged-Bytes", strconv.Itoa(reception.FlaggedBytes()))
	w.Header().Set("X-Uncorrectable-Blocks", strconv.Itoa(reception.UncorrectableBlocks()))
	w.Write(reception.Payload)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    "covertaudio",
			"version": "1.0.0",
		},
		"modem": map[string]interface{}{
			"kind":     h.settings.Modem.Kind,
			"channels": len(h.transmitter.Modulator().Channels()),
		},
	}

	writeJSON(w, http.StatusOK, health)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Payload and dump locations are omitted
	cfg := h.config.Sanitized()
	sanitizedConfig := map[string]interface{}{
		"modulation":  cfg.Modulation,
		"modulator":   cfg.Modulator,
		"demodulator": cfg.Demodulator,
		"modifiers":   cfg.Modifiers,
		"data": map[string]interface{}{
			"byte_count": cfg.Data.ByteCount,
			"sentinel":   cfg.Data.Sentinel,
			"codecs":     cfg.Data.Codecs,
		},
		"wav": map[string]interface{}{
			"channels":     cfg.WAV.Channels,
			"channel_mode": cfg.WAV.Mode,
			"read_channel": cfg.WAV.Channel,
			"format":       h.config.WAV.Options().Format.String(),
		},
		"workers":  cfg.Workers,
		"channels": h.transmitter.Modulator().Channels(),
		"logging": map[string]interface{}{
			"level":  cfg.Logging.Level,
			"format": cfg.Logging.Format,
			"output": cfg.Logging.Output,
		},
	}

	writeJSON(w, http.StatusOK, sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"runs":      h.stats.Statistics(),
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "covertaudio acoustic modem",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":          "API documentation",
			"GET /health":    "Service health check",
			"GET /config":    "Get modem configuration and carrier set",
			"GET /stats":     "Get run statistics",
			"GET /metrics":   "Prometheus metrics",
			"POST /transmit": "Modulate the request body, returns audio/wav",
			"POST /receive":  "Demodulate a WAV body, returns the payload",
		},
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, apiDoc)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// runStats counts pipeline runs for /stats and forwards every record.
type runStats struct {
	next pipeline.Recorder

	mu                  sync.RWMutex
	transmissions       uint64
	receptions          uint64
	syncFailures        uint64
	payloadBytesSent    uint64
	payloadBytesRecv    uint64
	flaggedBytes        uint64
	uncorrectableBlocks uint64
}

func (s *runStats) RecordTransmit(symbols, payloadBytes int, seconds float64) {
	s.mu.Lock()
	s.transmissions++
	s.payloadBytesSent += uint64(payloadBytes)
	s.mu.Unlock()
	s.next.RecordTransmit(symbols, payloadBytes, seconds)
}

func (s *runStats) RecordReceive(symbols, payloadBytes, flaggedBytes, uncorrectableBlocks int, seconds float64) {
	s.mu.Lock()
	s.receptions++
	s.payloadBytesRecv += uint64(payloadBytes)
	s.flaggedBytes += uint64(flaggedBytes)
	s.uncorrectableBlocks += uint64(uncorrectableBlocks)
	s.mu.Unlock()
	s.next.RecordReceive(symbols, payloadBytes, flaggedBytes, uncorrectableBlocks, seconds)
}

func (s *runStats) RecordSyncFailure() {
	s.mu.Lock()
	s.syncFailures++
	s.mu.Unlock()
	s.next.RecordSyncFailure()
}

// Statistics returns a snapshot of the counters.
func (s *runStats) Statistics() RunStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return RunStatistics{
		Transmissions:        s.transmissions,
		Receptions:           s.receptions,
		SyncFailures:         s.syncFailures,
		PayloadBytesSent:     s.payloadBytesSent,
		PayloadBytesReceived: s.payloadBytesRecv,
		FlaggedBytes:         s.flaggedBytes,
		UncorrectableBlocks:  s.uncorrectableBlocks,
	}
}

// RunStatistics represents pipeline activity since startup
type RunStatistics struct {
	Transmissions        uint64 `json:"transmissions"`
	Receptions           uint64 `json:"receptions"`
	SyncFailures         uint64 `json:"sync_failures"`
	PayloadBytesSent     uint64 `json:"payload_bytes_sent"`
	PayloadBytesReceived uint64 `json:"payload_bytes_received"`
	FlaggedBytes         uint64 `json:"flagged_bytes"`
	UncorrectableBlocks  uint64 `json:"uncorrectable_blocks"`
}
