// Package httpclient provides an HTTP client for talking to tuner backends.
//
// The client wraps the standard http.Client and adds:
//   - a circuit breaker that stops hammering an unreachable backend
//   - retries with exponential backoff on transient status codes
//   - transparent gzip, deflate and brotli decompression
//   - a post-decompression response size cap
package httpclient

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

// Errors returned by the client.
var (
	ErrCircuitOpen      = errors.New("circuit breaker is open")
	ErrMaxRetries       = errors.New("max retries exceeded")
	ErrResponseTooLarge = errors.New("response body exceeds maximum size limit")
)

// Default configuration values.
const (
	DefaultTimeout           = 60 * time.Second
	DefaultRetryAttempts     = 3
	DefaultRetryDelay        = 500 * time.Millisecond
	DefaultRetryMaxDelay     = 10 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultCircuitThreshold  = 5
	DefaultCircuitTimeout    = 30 * time.Second
	DefaultAcceptEncoding    = "gzip, deflate, br"
)

// HTTP header names.
const (
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderContentEncoding = "Content-Encoding"
	HeaderUserAgent       = "User-Agent"
)

// Config holds the configuration for the HTTP client.
type Config struct {
	// Timeout bounds a single attempt including reading headers.
	Timeout time.Duration

	// RetryAttempts is the number of retries after the first attempt.
	RetryAttempts int

	// RetryDelay is the delay before the first retry. It grows by
	// BackoffMultiplier up to RetryMaxDelay.
	RetryDelay        time.Duration
	RetryMaxDelay     time.Duration
	BackoffMultiplier float64

	// CircuitThreshold is the number of consecutive failures that opens the
	// circuit. CircuitTimeout is how long it stays open before a trial request.
	CircuitThreshold int
	CircuitTimeout   time.Duration

	UserAgent string
	Logger    *slog.Logger

	// MaxResponseSize caps the decompressed body. Zero disables the cap.
	MaxResponseSize int64

	// BaseClient is the underlying client. If nil, one is created.
	BaseClient *http.Client
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:           DefaultTimeout,
		RetryAttempts:     DefaultRetryAttempts,
		RetryDelay:        DefaultRetryDelay,
		RetryMaxDelay:     DefaultRetryMaxDelay,
		BackoffMultiplier: DefaultBackoffMultiplier,
		CircuitThreshold:  DefaultCircuitThreshold,
		CircuitTimeout:    DefaultCircuitTimeout,
		Logger:            slog.Default(),
	}
}

// Client is an HTTP client with circuit breaker and retry support.
type Client struct {
	config  Config
	client  *http.Client
	breaker *CircuitBreaker
	logger  *slog.Logger
}

// New creates a client with the given configuration.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = DefaultBackoffMultiplier
	}

	base := cfg.BaseClient
	if base == nil {
		base = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		config:  cfg,
		client:  base,
		breaker: NewCircuitBreaker(cfg.CircuitThreshold, cfg.CircuitTimeout),
		logger:  cfg.Logger,
	}
}

// Do executes req with circuit breaker protection and retries.
//
// Transport errors and 429/502/503/504 responses are retried. Any other
// response is returned to the caller, with non-2xx statuses counted against
// the circuit.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if req.Header.Get(HeaderUserAgent) == "" && c.config.UserAgent != "" {
		req.Header.Set(HeaderUserAgent, c.config.UserAgent)
	}
	if req.Header.Get(HeaderAcceptEncoding) == "" {
		req.Header.Set(HeaderAcceptEncoding, DefaultAcceptEncoding)
	}

	var lastErr error
	delay := c.config.RetryDelay

	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying request",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("url", req.URL.Redacted()),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}

			delay = min(time.Duration(float64(delay)*c.config.BackoffMultiplier), c.config.RetryMaxDelay)
		}

		if !c.breaker.Allow() {
			lastErr = ErrCircuitOpen
			c.logger.Warn("circuit breaker open, skipping request",
				slog.String("url", req.URL.Redacted()),
			)
			continue
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		elapsed := time.Since(start)

		if err != nil {
			c.breaker.RecordFailure()
			lastErr = err
			c.logger.Warn("request failed",
				slog.String("url", req.URL.Redacted()),
				slog.Duration("duration", elapsed),
				slog.String("error", err.Error()),
				slog.Int("attempt", attempt),
			)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			continue
		}

		if isRetryableStatus(resp.StatusCode) {
			c.breaker.RecordFailure()
			lastErr = fmt.Errorf("retryable status code: %d", resp.StatusCode)
			c.logger.Warn("retryable status code",
				slog.String("url", req.URL.Redacted()),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt),
			)
			_ = resp.Body.Close()
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.breaker.RecordSuccess()
		} else {
			c.breaker.RecordFailure()
		}

		c.logger.Debug("request completed",
			slog.String("method", req.Method),
			slog.String("url", req.URL.Redacted()),
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", elapsed),
		)

		resp.Body = c.wrapDecompression(resp)
		if c.config.MaxResponseSize > 0 {
			resp.Body = newLimitedReader(resp.Body, c.config.MaxResponseSize)
		}
		return resp, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrMaxRetries, lastErr)
	}
	return nil, ErrMaxRetries
}

// Get performs a GET request to url.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.Do(req)
}

// Breaker returns the client's circuit breaker.
func (c *Client) Breaker() *CircuitBreaker {
	return c.breaker
}

// StandardClient returns an *http.Client whose transport routes through c,
// for code that only accepts the standard client.
func (c *Client) StandardClient() *http.Client {
	return &http.Client{Transport: roundTripper{client: c}}
}

type roundTripper struct {
	client *Client
}

func (t roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.client.Do(req)
}

var _ http.RoundTripper = roundTripper{}

// wrapDecompression wraps the response body according to Content-Encoding.
// The transport only decodes gzip it asked for itself, so explicit encodings
// arrive here still compressed.
func (c *Client) wrapDecompression(resp *http.Response) io.ReadCloser {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get(HeaderContentEncoding)))

	var reader io.Reader
	switch encoding {
	case "":
		return resp.Body
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			c.logger.Warn("invalid gzip body, returning raw body", slog.String("error", err.Error()))
			return resp.Body
		}
		reader = gz
	case "deflate":
		reader = flate.NewReader(resp.Body)
	case "br":
		reader = brotli.NewReader(resp.Body)
	default:
		c.logger.Debug("unknown content encoding", slog.String("encoding", encoding))
		return resp.Body
	}

	resp.Header.Del(HeaderContentEncoding)
	resp.ContentLength = -1
	return &decompressReader{reader: reader, body: resp.Body}
}

type decompressReader struct {
	reader io.Reader
	body   io.Closer
}

func (d *decompressReader) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

func (d *decompressReader) Close() error {
	if closer, ok := d.reader.(io.Closer); ok {
		_ = closer.Close()
	}
	return d.body.Close()
}

// limitedReader fails with ErrResponseTooLarge once more than its limit has
// been read.
type limitedReader struct {
	io.ReadCloser
	remaining int64
}

func newLimitedReader(r io.ReadCloser, limit int64) *limitedReader {
	return &limitedReader{ReadCloser: r, remaining: limit}
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrResponseTooLarge
	}
	n, err := l.ReadCloser.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrResponseTooLarge
	}
	return n, err
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
