package afmcp

import (
	"log/slog"
	"net/http"

	"github.com/viant/afmcp/metrics"
)

// Option configures a Service.
type Option func(s *Service)

// WithLogger sets the process logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(metrics *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithHTTPTransport sets the transport used for token and Agent API calls.
func WithHTTPTransport(transport http.RoundTripper) Option {
	return func(s *Service) {
		s.transport = transport
	}
}
