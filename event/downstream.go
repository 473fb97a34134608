package event

import "time"

// Downstream is a message emitted to the downstream client.
type Downstream interface {
	downstream()
}

type (
	// PartialAnswer is answer text forwarded as soon as it arrives.
	PartialAnswer struct {
		Text string
	}

	// FinalAnswer is the assembled answer of a message.
	FinalAnswer struct {
		Text string
	}

	// ElicitationRequest asks the downstream client to answer a question.
	ElicitationRequest struct {
		ID        string
		Question  string
		Choices   []string
		ExpiresAt time.Time
	}

	// ToolProgress carries best-effort progress information.
	ToolProgress struct {
		Info string
	}

	// Failure is the terminal message of a failed turn.
	Failure struct {
		Reason string
		Err    error
	}
)

func (PartialAnswer) downstream()      {}
func (FinalAnswer) downstream()        {}
func (ElicitationRequest) downstream() {}
func (ToolProgress) downstream()       {}
func (Failure) downstream()            {}
