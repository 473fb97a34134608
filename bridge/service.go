package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/afmcp/errs"
	"github.com/viant/afmcp/event"
	"github.com/viant/afmcp/internal/collection"
)

// Service routes downstream sessions to their bridge sessions.
type Service struct {
	agentID    string
	agent      Agent
	options    *options
	sessions   *collection.SyncMap[string, *Session]
	closed     atomic.Bool
	stopReaper context.CancelFunc
	reaperDone chan struct{}
}

// HandleUserMessage starts a turn for sessionID, creating the session on first
// use. It fails with errs.ErrBusy while a turn of that session is active.
func (s *Service) HandleUserMessage(ctx context.Context, sessionID, text string) (<-chan event.Downstream, error) {
	if s.closed.Load() {
		return nil, errs.ErrSessionClosed
	}
	if sessionID == "" {
		return nil, errs.Protocol("session", fmt.Errorf("session id was empty"))
	}
	for {
		session, _ := s.sessions.GetOrCreate(sessionID, func() *Session {
			return s.newSession(sessionID)
		})
		out, err := session.Submit(ctx, text)
		if errors.Is(err, errs.ErrSessionClosed) && !s.closed.Load() {
			// replaced after teardown, the next message starts a new conversation
			s.remove(session)
			continue
		}
		return out, err
	}
}

// HandleElicitationAnswer resumes the turn suspended on elicitationID.
func (s *Service) HandleElicitationAnswer(ctx context.Context, sessionID, elicitationID, text string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return errs.ErrNoPendingElicitation
	}
	return session.Answer(elicitationID, text)
}

// HandleElicitationDecline ends the turn suspended on elicitationID.
func (s *Service) HandleElicitationDecline(ctx context.Context, sessionID, elicitationID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return errs.ErrNoPendingElicitation
	}
	return session.Decline(elicitationID)
}

// SessionClosed tears down the session of a terminated downstream session.
func (s *Service) SessionClosed(sessionID string) {
	if session, ok := s.sessions.Delete(sessionID); ok {
		session.Close()
	}
}

// Session returns the session registered under sessionID.
func (s *Service) Session(sessionID string) (*Session, bool) {
	return s.sessions.Get(sessionID)
}

// Close tears down every session.
func (s *Service) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.stopReaper != nil {
		s.stopReaper()
		<-s.reaperDone
	}
	var wg sync.WaitGroup
	for _, session := range s.sessions.Values() {
		wg.Add(1)
		go func(session *Session) {
			defer wg.Done()
			session.Close()
		}(session)
	}
	wg.Wait()
}

func (s *Service) newSession(sessionID string) *Session {
	ret := newSession(sessionID, s.agentID, s.agent, s.options)
	ret.onClose = s.remove
	return ret
}

func (s *Service) remove(session *Session) {
	s.sessions.DeleteFunc(session.ID, func(candidate *Session) bool {
		return candidate == session
	})
}

func (s *Service) reapLoop(ctx context.Context, interval time.Duration) {
	defer close(s.reaperDone)
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.reap()
		}
	}
}

func (s *Service) reap() {
	deadline := s.options.now().Add(-s.options.idleTimeout)
	s.sessions.Range(func(id string, session *Session) bool {
		if session.idle(deadline) {
			s.options.logger.Info("closing idle session", "session", id)
			s.remove(session)
			session.Close()
		}
		return true
	})
}

func reapInterval(idle time.Duration) time.Duration {
	interval := idle / 10
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	return interval
}

// New creates a bridge service talking to agentID.
func New(agent Agent, agentID string, opts ...Option) *Service {
	ret := &Service{
		agentID:  agentID,
		agent:    agent,
		options:  newOptions(opts),
		sessions: collection.NewSyncMap[string, *Session](),
	}
	if ret.options.idleTimeout > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		ret.stopReaper = cancel
		ret.reaperDone = make(chan struct{})
		go ret.reapLoop(ctx, reapInterval(ret.options.idleTimeout))
	}
	return ret
}
