package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viant/afmcp/errs"
	"github.com/viant/afmcp/event"
)

// Agentforce message types
const (
	TypeTextChunk         = "TextChunk"
	TypeInform            = "Inform"
	TypeProgressIndicator = "ProgressIndicator"
	TypeInquire           = "Inquire"
	TypeFailure           = "Failure"
	TypeError             = "Error"
	TypeEndOfTurn         = "EndOfTurn"
)

type envelope struct {
	Message *payload `json:"message"`
}

type payload struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result,omitempty"`
	Choices []string        `json:"choices,omitempty"`
	Errors  json.RawMessage `json:"errors,omitempty"`
}

// decode maps a frame onto events; known is false for unrecognized payloads.
func decode(frame *Frame) (events []event.Upstream, known bool, err error) {
	env := &envelope{}
	if err = json.Unmarshal([]byte(frame.Data), env); err != nil {
		return nil, false, errs.Stream("decode frame", err)
	}
	msg := env.Message
	if msg == nil {
		if endOfTurn(frame.Event) {
			return []event.Upstream{&event.StreamEnd{}}, true, nil
		}
		return nil, false, nil
	}
	switch msg.Type {
	case TypeTextChunk:
		return []event.Upstream{&event.TextDelta{Text: msg.Message}}, true, nil
	case TypeInform:
		return []event.Upstream{&event.TextDone{Text: informText(msg)}}, true, nil
	case TypeProgressIndicator:
		return []event.Upstream{&event.Progress{Info: msg.Message}}, true, nil
	case TypeInquire:
		return []event.Upstream{&event.Elicitation{Question: msg.Message, Choices: msg.Choices}}, true, nil
	case TypeFailure, TypeError:
		detail := failureDetail(msg)
		return []event.Upstream{&event.Error{Detail: detail, Err: errs.Upstream("agent", fmt.Errorf("%s", detail))}}, true, nil
	case TypeEndOfTurn:
		return []event.Upstream{&event.StreamEnd{}}, true, nil
	}
	return nil, false, nil
}

// endOfTurn matches EndOfTurn and END_OF_TURN event names.
func endOfTurn(name string) bool {
	return strings.EqualFold(strings.ReplaceAll(name, "_", ""), TypeEndOfTurn)
}

func informText(msg *payload) string {
	result := bytes.TrimSpace(msg.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) || bytes.Equal(result, []byte("[]")) {
		return msg.Message
	}
	indented := bytes.Buffer{}
	if err := json.Indent(&indented, result, "", "  "); err != nil {
		return msg.Message
	}
	if msg.Message == "" {
		return indented.String()
	}
	return msg.Message + "\n\n" + indented.String()
}

func failureDetail(msg *payload) string {
	if len(msg.Errors) > 0 {
		var texts []string
		if err := json.Unmarshal(msg.Errors, &texts); err == nil && len(texts) > 0 {
			return strings.Join(texts, "; ")
		}
		var objects []struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(msg.Errors, &objects); err == nil {
			for _, object := range objects {
				if object.Message != "" {
					texts = append(texts, object.Message)
				}
			}
			if len(texts) > 0 {
				return strings.Join(texts, "; ")
			}
		}
	}
	if msg.Message != "" {
		return msg.Message
	}
	return "agent reported a failure"
}
