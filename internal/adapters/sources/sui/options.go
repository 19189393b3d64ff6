package sui

import (
	"net/http"
	"time"

	"github.com/okian/affinity/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for RPC calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.rps = rps
		}
		if burst > 0 {
			c.burst = burst
		}
	}
}

// WithPageLimit sets the page size requested from the node.
func WithPageLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageLimit = n
		}
	}
}

// WithMaxPages caps how many pages one lookup may follow.
func WithMaxPages(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithBreaker sets the consecutive failure threshold that opens the circuit
// and how long it stays open before probing again.
func WithBreaker(failures int, openFor time.Duration) Option {
	return func(c *Client) {
		if failures > 0 {
			c.breakerFailures = uint32(failures) //nolint:gosec // bounded by config validation
		}
		if openFor > 0 {
			c.breakerTimeout = openFor
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
