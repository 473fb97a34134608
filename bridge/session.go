package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/viant/afmcp/agent"
	"github.com/viant/afmcp/errs"
	"github.com/viant/afmcp/event"
	"github.com/viant/afmcp/metrics"
	"github.com/viant/afmcp/stream"
)

// Agent is the upstream conversation API.
type Agent interface {
	Open(ctx context.Context, agentID string) (*agent.Conversation, error)
	Send(ctx context.Context, conversation *agent.Conversation, text string) (*agent.StreamHandle, error)
	Close(ctx context.Context, conversation *agent.Conversation)
}

type State int

const (
	StateIdle State = iota
	StateStreaming
	StateSuspended
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateSuspended:
		return "suspended"
	case StateClosed:
		return "closed"
	}
	return "idle"
}

// Session binds a downstream session to one agent conversation and runs at
// most one turn at a time.
type Session struct {
	ID      string
	agentID string
	agent   Agent
	options *options
	logger  *slog.Logger

	coordinator  *coordinator
	mux          sync.Mutex
	state        State
	conversation *agent.Conversation
	cancelTurn   context.CancelFunc
	turnDone     chan struct{}
	lastActive   time.Time
	closeOnce    sync.Once
	onClose      func(*Session)
}

// Submit starts a turn with text. The returned channel carries the turn
// messages and is closed when the turn is over.
func (s *Session) Submit(ctx context.Context, text string) (<-chan event.Downstream, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	switch s.state {
	case StateClosed:
		return nil, errs.ErrSessionClosed
	case StateIdle:
	default:
		return nil, errs.ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan event.Downstream, s.options.bufferSize)
	s.state = StateStreaming
	s.cancelTurn = cancel
	s.turnDone = make(chan struct{})
	s.lastActive = s.options.now()
	go s.run(ctx, cancel, text, out, s.turnDone)
	return out, nil
}

func (s *Session) State() State {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.state
}

// Pending returns the pending elicitation, if any.
func (s *Session) Pending() *PendingElicitation {
	return s.coordinator.current()
}

func (s *Session) Answer(elicitationID, text string) error {
	return s.coordinator.onAnswer(elicitationID, text)
}

func (s *Session) Decline(elicitationID string) error {
	return s.coordinator.onDecline(elicitationID)
}

// idle reports whether the session has been idle since before deadline.
func (s *Session) idle(deadline time.Time) bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.state == StateIdle && s.lastActive.Before(deadline)
}

// Close tears the session down and waits, bounded, for an active turn to end.
func (s *Session) Close() {
	s.teardown("closed")
	s.mux.Lock()
	done := s.turnDone
	s.mux.Unlock()
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(s.options.closeTimeout):
		s.logger.Warn("turn did not stop in time")
	}
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, text string, out chan event.Downstream, done chan struct{}) {
	started := s.options.now()
	outcome, fatal := s.turn(ctx, text, out)
	cancel()
	s.options.metrics.Turn(outcome, started)
	s.mux.Lock()
	if fatal != nil {
		s.state = StateClosed
	} else if s.state != StateClosed {
		s.state = StateIdle
	}
	s.lastActive = s.options.now()
	s.mux.Unlock()
	if fatal != nil {
		s.teardown(fatal.Error())
	}
	close(out)
	close(done)
}

// turn drives send, stream, suspend and resume until the agent finishes. A
// non nil error is unrecoverable for the session.
func (s *Session) turn(ctx context.Context, text string, out chan event.Downstream) (string, error) {
	conversation, err := s.open(ctx)
	if err != nil {
		return s.abort(ctx, out, err)
	}
	translator := newTranslator(out, s.logger)
	for {
		state, inquiry, err := s.exchange(ctx, conversation, text, translator)
		if err != nil {
			return s.abort(ctx, out, err)
		}
		if state != translatorSuspended {
			return metrics.OutcomeCompleted, nil
		}
		pending, err := s.coordinator.onElicitation(inquiry.Question, inquiry.Choices)
		if err != nil {
			return s.abort(ctx, out, err)
		}
		s.setState(StateSuspended)
		s.options.metrics.Elicitation("requested")
		request := &event.ElicitationRequest{ID: pending.ID, Question: pending.Question, Choices: pending.Choices, ExpiresAt: pending.ExpiresAt}
		if err = translator.emit(ctx, request); err != nil {
			s.coordinator.drop(pending)
			return s.abort(ctx, out, err)
		}
		answer, err := s.coordinator.wait(ctx, pending)
		if err != nil {
			outcome := "expired"
			if ctx.Err() != nil {
				outcome = metrics.OutcomeAborted
			}
			s.options.metrics.Elicitation(outcome)
			return s.abort(ctx, out, err)
		}
		s.setState(StateStreaming)
		if answer.declined {
			s.options.metrics.Elicitation(metrics.OutcomeDeclined)
			s.logger.Info("elicitation declined", "elicitation", pending.ID)
			return metrics.OutcomeDeclined, nil
		}
		s.options.metrics.Elicitation("answered")
		text = answer.text
	}
}

// exchange sends text and translates the response stream.
func (s *Session) exchange(ctx context.Context, conversation *agent.Conversation, text string, translator *translator) (translatorState, *event.Elicitation, error) {
	streamCtx, cancel := context.WithTimeout(ctx, s.options.turnTimeout)
	defer cancel()
	handle, err := s.agent.Send(streamCtx, conversation, text)
	if err != nil {
		return translatorDone, nil, s.timedOut(ctx, streamCtx, err)
	}
	defer handle.Close()
	reader := stream.NewReader(handle, s.options.streamOptions...)
	state, inquiry, err := translator.consume(streamCtx, reader)
	if err != nil {
		return state, nil, s.timedOut(ctx, streamCtx, err)
	}
	return state, inquiry, nil
}

// timedOut substitutes the turn timeout for errors caused by the exchange deadline.
func (s *Session) timedOut(ctx, streamCtx context.Context, err error) error {
	if ctx.Err() == nil && errors.Is(streamCtx.Err(), context.DeadlineExceeded) {
		return errs.ErrTurnTimeout
	}
	return err
}

func (s *Session) open(ctx context.Context) (*agent.Conversation, error) {
	s.mux.Lock()
	conversation := s.conversation
	s.mux.Unlock()
	if conversation != nil {
		return conversation, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.options.turnTimeout)
	defer cancel()
	conversation, err := s.agent.Open(ctx, s.agentID)
	if err != nil {
		return nil, err
	}
	s.mux.Lock()
	closed := s.state == StateClosed
	if !closed {
		s.conversation = conversation
	}
	s.mux.Unlock()
	if closed {
		s.agent.Close(ctx, conversation)
		return nil, errs.ErrSessionClosed
	}
	return conversation, nil
}

// abort emits the terminal failure of a turn. Agent reported failures and
// malformed payloads end the turn only; everything else ends the session.
func (s *Session) abort(ctx context.Context, out chan event.Downstream, err error) (string, error) {
	if ctx.Err() != nil {
		s.logger.Info("turn aborted", "error", err)
		return metrics.OutcomeAborted, err
	}
	failure := &event.Failure{Reason: err.Error(), Err: err}
	timer := time.NewTimer(s.options.closeTimeout)
	defer timer.Stop()
	select {
	case out <- failure:
	case <-ctx.Done():
		s.logger.Info("turn aborted before failure was delivered", "error", err)
	case <-timer.C:
		s.logger.Warn("dropping failure, downstream not reading", "error", err)
	}
	var streamErr *streamFailure
	if errors.As(err, &streamErr) && !errors.Is(err, errs.ErrStreamInterrupted) {
		s.logger.Warn("turn failed", "error", err)
		return metrics.OutcomeFailed, nil
	}
	s.logger.Error("session failed", "error", err)
	return metrics.OutcomeFailed, err
}

func (s *Session) setState(state State) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.state != StateClosed {
		s.state = state
	}
}

// teardown closes the session once: cancels the turn, drops the pending
// elicitation and closes the conversation.
func (s *Session) teardown(reason string) {
	s.closeOnce.Do(func() {
		s.mux.Lock()
		s.state = StateClosed
		cancel := s.cancelTurn
		conversation := s.conversation
		s.mux.Unlock()
		if cancel != nil {
			cancel()
		}
		s.coordinator.drop(nil)
		if conversation != nil {
			s.agent.Close(context.Background(), conversation)
		}
		s.options.metrics.SessionClosed()
		s.logger.Info("session closed", "reason", reason)
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

func newSession(id, agentID string, agent Agent, options *options) *Session {
	options.metrics.SessionOpened()
	return &Session{
		ID:          id,
		agentID:     agentID,
		agent:       agent,
		options:     options,
		logger:      options.logger.With("session", id),
		coordinator: newCoordinator(options.elicitationTimeout, options.now),
		lastActive:  options.now(),
	}
}
