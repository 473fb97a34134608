package mock

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/viant/afmcp/agent"
)

func (s *Service) openHandler(w http.ResponseWriter, r *http.Request, body []byte) {
	payload := &agent.OpenRequest{}
	if err := json.Unmarshal(body, payload); err != nil || payload.ExternalSessionKey == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid session request"})
		return
	}
	s.mux.Lock()
	s.sequence++
	sessionID := fmt.Sprintf("session-%d", s.sequence)
	s.sessions[sessionID] = true
	s.mux.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": sessionID,
		"_links":    map[string]interface{}{},
		"messages":  []interface{}{},
	})
}

func (s *Service) streamHandler(w http.ResponseWriter, r *http.Request, body []byte) {
	sessionID := r.PathValue("sessionID")
	payload := &agent.MessageRequest{}
	if err := json.Unmarshal(body, payload); err != nil || payload.Message.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid message"})
		return
	}
	s.mux.Lock()
	open := s.sessions[sessionID]
	turn := Turn{Frames: []string{EndOfTurn()}}
	if len(s.turns) > 0 {
		turn = s.turns[0]
		s.turns = s.turns[1:]
	}
	s.mux.Unlock()
	if !open {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "session not found"})
		return
	}
	if turn.Status != 0 {
		writeJSON(w, turn.Status, map[string]string{"message": http.StatusText(turn.Status)})
		return
	}
	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", agent.EventStreamMedia)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if flusher != nil {
		flusher.Flush()
	}
	for _, frame := range turn.Frames {
		if turn.Delay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(turn.Delay):
			}
		}
		if _, err := io.WriteString(w, frame); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	if turn.Hold {
		<-r.Context().Done()
	}
}

func (s *Service) deleteHandler(w http.ResponseWriter, r *http.Request, _ []byte) {
	sessionID := r.PathValue("sessionID")
	s.mux.Lock()
	open := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mux.Unlock()
	if !open {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "session not found"})
		return
	}
	if r.Header.Get(agent.EndReasonHeader) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "missing end reason"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}
