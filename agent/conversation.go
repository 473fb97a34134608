package agent

import "sync/atomic"

type Status int32

const (
	StatusOpen Status = iota
	StatusClosed
)

func (s Status) String() string {
	if s == StatusClosed {
		return "closed"
	}
	return "open"
}

// Conversation is an upstream agent session.
type Conversation struct {
	ID          string
	AgentID     string
	ExternalKey string
	sequence    atomic.Int64
	status      atomic.Int32
}

// NextSequence returns the sequence id for the next message, starting at 1.
func (c *Conversation) NextSequence() int64 {
	return c.sequence.Add(1)
}

func (c *Conversation) Status() Status {
	return Status(c.status.Load())
}

// markClosed transitions to Closed and reports whether this call did it.
func (c *Conversation) markClosed() bool {
	return c.status.CompareAndSwap(int32(StatusOpen), int32(StatusClosed))
}
