package mock

import (
	"net/http"
)

const apiPath = "/einstein/ai-agent/v1"

func (s *Service) newRouter() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+TokenPath, s.tokenHandler)
	mux.HandleFunc("POST "+apiPath+"/agents/{agentID}/sessions", s.api(s.openHandler))
	mux.HandleFunc("POST "+apiPath+"/sessions/{sessionID}/messages/stream", s.api(s.streamHandler))
	mux.HandleFunc("DELETE "+apiPath+"/sessions/{sessionID}", s.api(s.deleteHandler))
	return mux
}

// api records the request and enforces bearer authorization.
func (s *Service) api(next func(w http.ResponseWriter, r *http.Request, body []byte)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			http.Error(w, "Invalid body", http.StatusBadRequest)
			return
		}
		s.mux.Lock()
		s.requests = append(s.requests, &Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			SessionID: r.PathValue("sessionID"),
			Header:    r.Header.Clone(),
			Body:      body,
		})
		reject := s.rejections > 0
		if reject {
			s.rejections--
		}
		s.mux.Unlock()
		if reject || !s.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"errorCode": "INVALID_SESSION_ID", "message": "Session expired or invalid"})
			return
		}
		next(w, r, body)
	}
}
