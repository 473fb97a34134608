// Package event defines the tagged variants exchanged by the bridge: events
// decoded from the upstream agent stream and messages emitted to the downstream
// client. Each variant set is a sealed interface; consumers switch over the
// concrete types.
package event

// Upstream is an event decoded from one upstream SSE frame.
type Upstream interface {
	upstream()
}

type (
	// TextDelta carries an incremental piece of answer text.
	TextDelta struct {
		Text string
	}

	// TextDone carries the complete answer text of the current message.
	TextDone struct {
		Text string
	}

	// Elicitation is a clarifying question asked by the agent mid-turn.
	Elicitation struct {
		Question string
		Choices  []string
	}

	// Progress carries best-effort agent activity information.
	Progress struct {
		Info string
	}

	// Error reports a malformed frame, an upstream failure or a dropped stream.
	Error struct {
		Detail string
		Err    error
	}

	// StreamEnd terminates the turn stream.
	StreamEnd struct{}
)

func (TextDelta) upstream()   {}
func (TextDone) upstream()    {}
func (Elicitation) upstream() {}
func (Progress) upstream()    {}
func (Error) upstream()       {}
func (StreamEnd) upstream()   {}
