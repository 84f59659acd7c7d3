package pushover

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/otiai10/podog/internal/version"
)

// DefaultBaseURL is the production Pushover API.
const DefaultBaseURL = "https://api.pushover.net"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Client talks to the Pushover API. Each call issues exactly one HTTP
// request; retries are left to the caller.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL   string
	client    *http.Client
	timeout   time.Duration
	userAgent string
	log       zerolog.Logger
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
// Default timeout is 30 seconds if not specified.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithBaseURL points the client at another API root, e.g. a test server.
//
// Example:
//
//	client := pushover.NewClient(pushover.WithBaseURL(server.URL))
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client. WithTimeout is ignored
// when this is set.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a Pushover client with the given options.
//
// Example:
//
//	client := pushover.NewClient(pushover.WithTimeout(10 * time.Second))
//	result, err := client.Submit(ctx, creds, pushover.Request{Message: "hello"})
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		timeout:   30 * time.Second,
		userAgent: version.UserAgent(),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{
			Timeout: c.timeout,
		}
	}
	return c
}

// BaseURL returns the API root the client sends to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends req and decodes the JSON body into out. The body is decoded
// whatever the HTTP status, since Pushover reports errors in JSON with 4xx
// codes.
func (c *Client) do(req *http.Request, op string, out any) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return resp, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}
