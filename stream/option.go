package stream

import (
	"log/slog"

	"github.com/viant/afmcp/metrics"
)

const DefaultMaxFrameSize = 1 << 20

type Option func(*Reader)

// WithMaxFrameSize limits the bytes of a single frame.
func WithMaxFrameSize(size int) Option {
	return func(r *Reader) {
		r.maxFrameSize = size
	}
}

// WithLogger sets logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger
	}
}

// WithMetrics sets metrics
func WithMetrics(metrics *metrics.Metrics) Option {
	return func(r *Reader) {
		r.metrics = metrics
	}
}
