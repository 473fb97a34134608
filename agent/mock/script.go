package mock

import (
	"encoding/json"
	"strings"
	"time"
)

// Turn is the scripted reply to one message.
type Turn struct {
	// Frames are written in order, each flushed separately.
	Frames []string
	// Delay is applied before each frame.
	Delay time.Duration
	// Hold keeps the stream open after the last frame until the client goes away.
	Hold bool
	// Status, when set, replaces the stream with an error response.
	Status int
}

// Frame encodes payload as one event-stream frame.
func Frame(payload interface{}) string {
	data, _ := json.Marshal(payload)
	return "data: " + string(data) + "\n\n"
}

func message(kind string, fields map[string]interface{}) string {
	msg := map[string]interface{}{"type": kind}
	for k, v := range fields {
		msg[k] = v
	}
	return Frame(map[string]interface{}{"message": msg})
}

func TextChunk(text string) string {
	return message("TextChunk", map[string]interface{}{"message": text})
}

// Inform is a completed agent message; result is optional.
func Inform(text string, result interface{}) string {
	fields := map[string]interface{}{"message": text}
	if result != nil {
		fields["result"] = result
	}
	return message("Inform", fields)
}

func Progress(text string) string {
	return message("ProgressIndicator", map[string]interface{}{"message": text})
}

func Inquire(question string, choices ...string) string {
	fields := map[string]interface{}{"message": question}
	if len(choices) > 0 {
		fields["choices"] = choices
	}
	return message("Inquire", fields)
}

func Failure(detail string) string {
	return message("Failure", map[string]interface{}{"errors": []string{detail}})
}

func EndOfTurn() string {
	return message("EndOfTurn", nil)
}

// Answer builds a turn that streams text as chunks of the given sizes followed
// by the complete message and the end of turn.
func Answer(text string, chunks ...string) Turn {
	var frames []string
	for _, chunk := range chunks {
		frames = append(frames, TextChunk(chunk))
	}
	if len(chunks) == 0 {
		for _, word := range strings.SplitAfter(text, " ") {
			frames = append(frames, TextChunk(word))
		}
	}
	frames = append(frames, Inform(text, nil), EndOfTurn())
	return Turn{Frames: frames}
}

// Question builds a turn that asks question after optional lead text.
func Question(lead, question string, choices ...string) Turn {
	var frames []string
	if lead != "" {
		frames = append(frames, TextChunk(lead), Inform(lead, nil))
	}
	frames = append(frames, Inquire(question, choices...), EndOfTurn())
	return Turn{Frames: frames}
}
