package server

import (
	"log/slog"
	"net/http"

	"github.com/viant/afmcp/metrics"
	"github.com/viant/mcp-protocol/schema"
)

// Option is a function that configures the server.
type Option func(s *Server) error

// WithCORS sets the CORS policy of the HTTP endpoints.
func WithCORS(cors *Cors) Option {
	return func(s *Server) error {
		s.cors = cors
		return nil
	}
}

// WithImplementation sets the server implementation.
func WithImplementation(implementation schema.Implementation) Option {
	return func(s *Server) error {
		s.info = implementation
		return nil
	}
}

// WithInstructions sets the instructions returned on initialize.
func WithInstructions(instructions string) Option {
	return func(s *Server) error {
		s.instructions = &instructions
		return nil
	}
}

// WithLoggerName sets the protocol logger name.
func WithLoggerName(name string) Option {
	return func(s *Server) error {
		s.loggerName = name
		return nil
	}
}

// WithLogger sets the process logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithMetrics sets metrics; the registry is served at /metrics.
func WithMetrics(metrics *metrics.Metrics) Option {
	return func(s *Server) error {
		s.metrics = metrics
		return nil
	}
}

// WithStreamableHTTP selects the default transport mounted at the root redirect.
func WithStreamableHTTP(flag bool) Option {
	return func(s *Server) error {
		s.useStreamableHTTP = flag
		return nil
	}
}

// WithHTTPHandler mounts an additional handler.
func WithHTTPHandler(path string, handler http.Handler) Option {
	return func(s *Server) error {
		s.handlers[path] = handler
		return nil
	}
}
