package bridge

import (
	"log/slog"
	"time"

	"github.com/viant/afmcp/metrics"
	"github.com/viant/afmcp/stream"
)

const (
	DefaultTurnTimeout        = 2 * time.Minute
	DefaultElicitationTimeout = 5 * time.Minute
	DefaultSessionIdleTimeout = 30 * time.Minute
	defaultCloseTimeout       = 5 * time.Second
	defaultBufferSize         = 64
)

type options struct {
	turnTimeout        time.Duration
	elicitationTimeout time.Duration
	idleTimeout        time.Duration
	closeTimeout       time.Duration
	bufferSize         int
	logger             *slog.Logger
	metrics            *metrics.Metrics
	streamOptions      []stream.Option
	now                func() time.Time
}

type Option func(*options)

// WithTurnTimeout bounds the upstream streaming of one exchange.
func WithTurnTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.turnTimeout = timeout
	}
}

// WithElicitationTimeout bounds the wait for an elicitation answer.
func WithElicitationTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.elicitationTimeout = timeout
	}
}

// WithSessionIdleTimeout sets the idle period after which a session is closed;
// zero or negative disables the reaper.
func WithSessionIdleTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = timeout
	}
}

// WithBufferSize sets the capacity of the downstream message channel.
func WithBufferSize(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// WithLogger sets logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets metrics
func WithMetrics(metrics *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithStreamOptions sets options of every upstream stream reader.
func WithStreamOptions(opts ...stream.Option) Option {
	return func(o *options) {
		o.streamOptions = append(o.streamOptions, opts...)
	}
}

func newOptions(opts []Option) *options {
	ret := &options{
		turnTimeout:        DefaultTurnTimeout,
		elicitationTimeout: DefaultElicitationTimeout,
		idleTimeout:        DefaultSessionIdleTimeout,
		closeTimeout:       defaultCloseTimeout,
		bufferSize:         defaultBufferSize,
		logger:             slog.Default(),
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.bufferSize < 1 {
		ret.bufferSize = 1
	}
	ret.streamOptions = append([]stream.Option{stream.WithLogger(ret.logger), stream.WithMetrics(ret.metrics)}, ret.streamOptions...)
	return ret
}
