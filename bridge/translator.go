package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/viant/afmcp/event"
)

type translatorState int

const (
	translatorStreaming translatorState = iota
	translatorSuspended
	translatorDone
)

// upstreamReader yields the events of one stream segment.
type upstreamReader interface {
	Next() (event.Upstream, bool)
}

// streamFailure is a terminal Error event of a stream segment.
type streamFailure struct {
	event *event.Error
}

func (f *streamFailure) Error() string {
	return f.event.Detail
}

func (f *streamFailure) Unwrap() error {
	return f.event.Err
}

// translator maps upstream events of a turn to downstream messages.
type translator struct {
	out       chan<- event.Downstream
	logger    *slog.Logger
	carry     []byte
	assembled strings.Builder
	pending   bool
}

// consume reads r until the segment ends or the agent asks a question. It
// returns translatorSuspended with the elicitation in the latter case and stops
// reading r.
func (t *translator) consume(ctx context.Context, r upstreamReader) (translatorState, *event.Elicitation, error) {
	for {
		next, ok := r.Next()
		if !ok {
			return translatorDone, nil, nil
		}
		switch actual := next.(type) {
		case *event.TextDelta:
			t.assembled.WriteString(actual.Text)
			t.pending = true
			if text := t.complete(actual.Text); text != "" {
				if err := t.emit(ctx, &event.PartialAnswer{Text: text}); err != nil {
					return translatorDone, nil, err
				}
			}
		case *event.TextDone:
			if err := t.done(ctx, actual.Text); err != nil {
				return translatorDone, nil, err
			}
		case *event.Progress:
			select {
			case t.out <- &event.ToolProgress{Info: actual.Info}:
			default:
				t.logger.Debug("dropping progress update", "info", actual.Info)
			}
		case *event.Elicitation:
			return translatorSuspended, actual, nil
		case *event.Error:
			return translatorDone, nil, &streamFailure{event: actual}
		case *event.StreamEnd:
			if t.pending {
				text := t.assembled.String()
				t.reset()
				if err := t.emit(ctx, &event.FinalAnswer{Text: text}); err != nil {
					return translatorDone, nil, err
				}
			}
			return translatorDone, nil, nil
		default:
			return translatorDone, nil, fmt.Errorf("unsupported upstream event %T", next)
		}
	}
}

func (t *translator) done(ctx context.Context, text string) error {
	if t.pending {
		if assembled := t.assembled.String(); assembled != text {
			t.logger.Warn("streamed text differs from completed message", "streamed", len(assembled), "completed", len(text))
		}
	}
	t.reset()
	return t.emit(ctx, &event.FinalAnswer{Text: text})
}

func (t *translator) reset() {
	t.assembled.Reset()
	t.carry = t.carry[:0]
	t.pending = false
}

// complete returns the carried bytes plus text up to the last complete rune,
// keeping an incomplete trailing sequence for the next delta.
func (t *translator) complete(text string) string {
	data := append(t.carry, text...)
	cut := len(data)
	for i := 1; i < utf8.UTFMax && i <= len(data); i++ {
		if utf8.RuneStart(data[len(data)-i]) {
			if !utf8.FullRune(data[len(data)-i:]) {
				cut = len(data) - i
			}
			break
		}
	}
	ret := string(data[:cut])
	t.carry = append(t.carry[:0], data[cut:]...)
	return ret
}

func (t *translator) emit(ctx context.Context, msg event.Downstream) error {
	select {
	case t.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newTranslator(out chan<- event.Downstream, logger *slog.Logger) *translator {
	return &translator{out: out, logger: logger}
}
