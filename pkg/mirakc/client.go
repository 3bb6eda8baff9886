package mirakc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/miraview/internal/version"
)

// Default configuration values.
const (
	DefaultTimeout = 2 * time.Minute

	// API endpoint paths.
	pathPrograms = "/api/programs"
	pathServices = "/api/services"
	pathTuners   = "/api/tuners"
	pathVersion  = "/api/version"
	pathStream   = "/stream"

	maxErrorBodyReadSize = 1024
)

// HTTP header constants.
const (
	headerUserAgent = "User-Agent"
	headerAccept    = "Accept"
)

// ErrUnexpectedStatus is returned when mirakc answers with a non-200 status.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client is a mirakc REST API client.
type Client struct {
	// BaseURL is the server base URL (e.g., "http://tuner.local:40772").
	BaseURL string

	// HTTPClient is the standard HTTP client used for requests.
	// If nil, a default client with DefaultTimeout is used.
	HTTPClient *http.Client

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// NewClient creates a new mirakc API client.
// It accepts the standard *http.Client so a resilient wrapper can be injected.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		UserAgent: version.UserAgent(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithHTTPClient sets a custom standard library HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.HTTPClient = client
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.UserAgent = ua
	}
}

// doRequest performs an HTTP GET request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set(headerAccept, "application/json")
	if c.UserAgent != "" {
		req.Header.Set(headerUserAgent, c.UserAgent)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyReadSize))
		return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// Programs retrieves every program in mirakc's EPG cache.
func (c *Client) Programs(ctx context.Context) ([]Program, error) {
	var programs []Program
	if err := c.doRequest(ctx, pathPrograms, &programs); err != nil {
		return nil, fmt.Errorf("fetching programs: %w", err)
	}
	if programs == nil {
		programs = []Program{}
	}
	return programs, nil
}

// Services retrieves every service mirakc can tune.
func (c *Client) Services(ctx context.Context) ([]Service, error) {
	var services []Service
	if err := c.doRequest(ctx, pathServices, &services); err != nil {
		return nil, fmt.Errorf("fetching services: %w", err)
	}
	if services == nil {
		services = []Service{}
	}
	return services, nil
}

// Tuners retrieves the state of every tuner.
func (c *Client) Tuners(ctx context.Context) ([]Tuner, error) {
	var tuners []Tuner
	if err := c.doRequest(ctx, pathTuners, &tuners); err != nil {
		return nil, fmt.Errorf("fetching tuners: %w", err)
	}
	if tuners == nil {
		tuners = []Tuner{}
	}
	return tuners, nil
}

// Version retrieves the server version.
func (c *Client) Version(ctx context.Context) (*Version, error) {
	var v Version
	if err := c.doRequest(ctx, pathVersion, &v); err != nil {
		return nil, fmt.Errorf("fetching version: %w", err)
	}
	return &v, nil
}

// StreamURL returns the live stream URL of a service with the scheme replaced
// by protocol (e.g. "vlc"). An empty protocol or unparsable base URL yields "".
func (c *Client) StreamURL(service *Service, protocol string) string {
	if service == nil || protocol == "" {
		return ""
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" {
		return ""
	}

	u.Scheme = protocol
	u.Path = pathServices + "/" + strconv.FormatInt(service.ID, 10) + pathStream
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
