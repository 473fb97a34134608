package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afmcp/errs"
)

// PendingElicitation is a question waiting for the downstream answer.
type PendingElicitation struct {
	ID        string
	Question  string
	Choices   []string
	CreatedAt time.Time
	ExpiresAt time.Time
	replies   chan reply
}

type reply struct {
	text     string
	declined bool
}

// coordinator holds at most one pending elicitation of a session.
type coordinator struct {
	timeout time.Duration
	now     func() time.Time
	mux     sync.Mutex
	pending *PendingElicitation
}

func (c *coordinator) onElicitation(question string, choices []string) (*PendingElicitation, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.pending != nil {
		return nil, errs.ErrDuplicateElicitation
	}
	now := c.now()
	c.pending = &PendingElicitation{
		ID:        uuid.NewString(),
		Question:  question,
		Choices:   choices,
		CreatedAt: now,
		ExpiresAt: now.Add(c.timeout),
		replies:   make(chan reply, 1),
	}
	return c.pending, nil
}

func (c *coordinator) onAnswer(id, text string) error {
	return c.resolve(id, reply{text: text})
}

func (c *coordinator) onDecline(id string) error {
	return c.resolve(id, reply{declined: true})
}

func (c *coordinator) resolve(id string, r reply) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.pending == nil {
		return errs.ErrNoPendingElicitation
	}
	if c.pending.ID != id {
		return errs.ErrElicitationMismatch
	}
	c.pending.replies <- r
	c.pending = nil
	return nil
}

// wait blocks until p is answered, declined, expired or ctx is done.
func (c *coordinator) wait(ctx context.Context, p *PendingElicitation) (reply, error) {
	replies := p.replies
	timer := time.NewTimer(p.ExpiresAt.Sub(c.now()))
	defer timer.Stop()
	select {
	case r := <-replies:
		return r, nil
	case <-timer.C:
		c.drop(p)
		select {
		case r := <-replies:
			return r, nil
		default:
		}
		return reply{}, errs.ErrElicitationTimeout
	case <-ctx.Done():
		c.drop(p)
		return reply{}, ctx.Err()
	}
}

// drop clears p when still pending; a nil p clears any pending elicitation.
func (c *coordinator) drop(p *PendingElicitation) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if p == nil || c.pending == p {
		c.pending = nil
	}
}

func (c *coordinator) current() *PendingElicitation {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.pending
}

func newCoordinator(timeout time.Duration, now func() time.Time) *coordinator {
	return &coordinator{timeout: timeout, now: now}
}
