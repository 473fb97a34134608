package stream

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/viant/afmcp/errs"
	"github.com/viant/afmcp/event"
	"github.com/viant/afmcp/metrics"
)

// Reader yields upstream events of one turn in wire order. The sequence always
// ends with a StreamEnd, after which Next reports false.
type Reader struct {
	maxFrameSize int
	logger       *slog.Logger
	metrics      *metrics.Metrics
	scanner      *scanner
	queue        []event.Upstream
	done         bool
}

// Next returns the next event; ok is false once the stream has ended.
func (r *Reader) Next() (event.Upstream, bool) {
	for len(r.queue) == 0 {
		if r.done {
			return nil, false
		}
		r.fill()
	}
	next := r.queue[0]
	r.queue = r.queue[1:]
	if _, ok := next.(*event.StreamEnd); ok {
		r.done = true
		r.queue = nil
	}
	return next, true
}

func (r *Reader) fill() {
	frame, err := r.scanner.next()
	if err != nil {
		if errors.Is(err, errFrameTooLarge) {
			r.failed(errs.Stream("read frame", err))
			return
		}
		r.interrupted(err)
		return
	}
	events, known, err := decode(frame)
	if err != nil {
		r.logger.Warn("malformed stream frame", "event", frame.Event, "error", err)
		r.failed(err)
		if endOfTurn(frame.Event) {
			r.queue = append(r.queue, &event.StreamEnd{})
		}
		return
	}
	if !known {
		r.logger.Debug("skipping stream frame", "event", frame.Event, "data", frame.Data)
		return
	}
	for _, evt := range events {
		if _, ok := evt.(*event.Error); ok {
			r.metrics.StreamError()
		}
	}
	r.queue = append(r.queue, events...)
}

func (r *Reader) failed(err error) {
	r.metrics.StreamError()
	r.queue = append(r.queue, &event.Error{Detail: err.Error(), Err: err})
}

// interrupted ends a stream that stopped before its end of turn.
func (r *Reader) interrupted(cause error) {
	err := fmt.Errorf("%w: %v", errs.ErrStreamInterrupted, cause)
	if cause == io.EOF {
		err = errs.ErrStreamInterrupted
	}
	r.logger.Warn("stream interrupted", "error", cause)
	r.failed(err)
	r.queue = append(r.queue, &event.StreamEnd{})
}

// NewReader creates a reader over body.
func NewReader(body io.Reader, options ...Option) *Reader {
	ret := &Reader{maxFrameSize: DefaultMaxFrameSize, logger: slog.Default()}
	for _, opt := range options {
		opt(ret)
	}
	ret.scanner = newScanner(body, ret.maxFrameSize)
	return ret
}
