package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/skypro1111/covertaudio/internal/framesync"
)

// Client talks to a covertaudio HTTP API
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{} // Rate limiting semaphore

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	totalRetries    uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// Config contains client configuration
type Config struct {
	// Endpoint is the server base URL, e.g. http://127.0.0.1:8080.
	Endpoint      string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
	// Backoff is the first retry delay; it doubles per attempt up to 30s.
	Backoff time.Duration
}

// HTTPError is a non-2xx response
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Unwrap maps 422 to the sync failure it reports.
func (e *HTTPError) Unwrap() error {
	if e.StatusCode == http.StatusUnprocessableEntity {
		return framesync.ErrSentinelNotFound
	}
	return nil
}

// Transmission is the response of POST /transmit
type Transmission struct {
	RunID   string
	WAV     []byte
	Symbols int
}

// Reception is the response of POST /receive
type Reception struct {
	RunID               string
	Payload             []byte
	SyncOffset          int
	FlaggedBytes        int
	UncorrectableBlocks int
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	TotalRetries    uint64        `json:"total_retries"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveRequests  int           `json:"active_requests"`
}

// NewClient creates a new API client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if _, err := url.ParseRequestURI(config.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", config.Endpoint, err)
	}
	config.Endpoint = strings.TrimRight(config.Endpoint, "/")

	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}

	if config.MaxRetries < 0 {
		config.MaxRetries = 3
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}

	if config.Backoff <= 0 {
		config.Backoff = time.Second
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Transmit asks the server to modulate payload and returns the WAV file
func (c *Client) Transmit(ctx context.Context, payload []byte) (*Transmission, error) {
	resp, err := c.do(ctx, "/transmit", "application/octet-stream", payload)
	if err != nil {
		return nil, err
	}

	symbols, _ := strconv.Atoi(resp.header.Get("X-Symbols"))
	return &Transmission{
		RunID:   resp.header.Get("X-Run-ID"),
		WAV:     resp.body,
		Symbols: symbols,
	}, nil
}

// Receive asks the server to demodulate wav. A negative channel leaves the
// choice to the server's configuration.
func (c *Client) Receive(ctx context.Context, wav []byte, channel int) (*Reception, error) {
	path := "/receive"
	if channel >= 0 {
		path += "?channel=" + strconv.Itoa(channel)
	}

	resp, err := c.do(ctx, path, "audio/wav", wav)
	if err != nil {
		return nil, err
	}

	r := &Reception{RunID: resp.header.Get("X-Run-ID"), Payload: resp.body}
	for name, dst := range map[string]*int{
		"X-Sync-Offset":          &r.SyncOffset,
		"X-Flagged-Bytes":        &r.FlaggedBytes,
		"X-Uncorrectable-Blocks": &r.UncorrectableBlocks,
	} {
		v, err := strconv.Atoi(resp.header.Get(name))
		if err != nil {
			return nil, fmt.Errorf("invalid %s header: %w", name, err)
		}
		*dst = v
	}
	return r, nil
}

type response struct {
	header http.Header
	body   []byte
}

// do posts body to path, retrying transient failures with exponential backoff
func (c *Client) do(ctx context.Context, path, contentType string, body []byte) (*response, error) {
	// Acquire semaphore for rate limiting
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	startTime := time.Now()
	c.incrementTotalRequests()

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.incrementTotalRetries()

			backoffTime := time.Duration(math.Pow(2, float64(attempt-1))) * c.config.Backoff
			if backoffTime > 30*time.Second {
				backoffTime = 30 * time.Second
			}

			select {
			case <-time.After(backoffTime):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.doRequest(ctx, path, contentType, body)
		if err == nil {
			c.incrementSuccessRequests()
			c.updateAvgResponseTime(time.Since(startTime))
			return resp, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	c.incrementFailedRequests()
	return nil, fmt.Errorf("POST %s failed: %w", path, lastErr)
}

// doRequest performs a single HTTP request
func (c *Client) doRequest(ctx context.Context, path, contentType string, body []byte) (*response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("User-Agent", "covertaudio-client/1.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return &response{header: resp.Header, body: respBody}, nil
}

// isRetryableError reports whether err is worth another attempt: server
// errors, rate limiting, and network failures other than cancellation.
func isRetryableError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == http.StatusTooManyRequests
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) incrementTotalRetries() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRetries++
}

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		TotalRetries:    c.totalRetries,
		AvgResponseTime: c.avgResponseTime,
		ActiveRequests:  len(c.semaphore),
	}
}

// Close waits for active requests to finish
func (c *Client) Close() error {
	for i := 0; i < c.config.MaxConcurrent; i++ {
		c.semaphore <- struct{}{}
	}

	return nil
}
