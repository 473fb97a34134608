package agent

import (
	"log/slog"
	"net/http"
	"time"
)

type Option func(*Client)

// WithBaseURL sets the Agent API base URL.
func WithBaseURL(URL string) Option {
	return func(c *Client) {
		c.baseURL = URL
	}
}

// WithDomainURL sets the org domain sent as the instance endpoint.
func WithDomainURL(URL string) Option {
	return func(c *Client) {
		c.domainURL = URL
	}
}

// WithTimeout bounds non-streaming calls and the time to stream headers.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithTransport sets the underlying transport wrapped by the bearer round tripper.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = transport
	}
}

// WithLogger sets logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
