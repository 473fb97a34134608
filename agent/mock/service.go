package mock

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/afmcp/agent"
)

// Request is a recorded Agent API request.
type Request struct {
	Method    string
	Path      string
	SessionID string
	Header    http.Header
	Body      []byte
}

// Service is a scripted Agent API.
type Service struct {
	URL          string
	ClientID     string
	ClientSecret string
	PrivateKey   *rsa.PrivateKey
	ExpiresIn    time.Duration

	tokenRequests atomic.Int32
	mux           sync.Mutex
	turns         []Turn
	requests      []*Request
	rejections    int
	sessions      map[string]bool
	sequence      int
	router        *http.ServeMux
}

// Enqueue appends turns replayed, in order, to subsequent messages.
func (s *Service) Enqueue(turns ...Turn) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.turns = append(s.turns, turns...)
}

// RejectTokens makes the next n API requests fail with 401 regardless of token.
func (s *Service) RejectTokens(n int) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.rejections = n
}

func (s *Service) TokenRequests() int {
	return int(s.tokenRequests.Load())
}

// Requests returns recorded API requests.
func (s *Service) Requests() []*Request {
	s.mux.Lock()
	defer s.mux.Unlock()
	return append([]*Request(nil), s.requests...)
}

// Messages returns the messages posted to sessionID.
func (s *Service) Messages(sessionID string) []agent.Message {
	var ret []agent.Message
	for _, req := range s.Requests() {
		if req.SessionID != sessionID || req.Method != http.MethodPost {
			continue
		}
		payload := &agent.MessageRequest{}
		if err := json.Unmarshal(req.Body, payload); err == nil {
			ret = append(ret, payload.Message)
		}
	}
	return ret
}

// Open reports whether sessionID was opened and not yet deleted.
func (s *Service) Open(sessionID string) bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.sessions[sessionID]
}

// Deleted returns ids of sessions closed by the client.
func (s *Service) Deleted() []string {
	var ret []string
	for _, req := range s.Requests() {
		if req.Method == http.MethodDelete {
			ret = append(ret, req.SessionID)
		}
	}
	return ret
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves the mock on a local test server and records its URL.
func (s *Service) Start() *httptest.Server {
	server := httptest.NewServer(s)
	s.URL = server.URL
	return server
}

// New creates a mock with test credentials.
func New() (*Service, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	ret := &Service{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		PrivateKey:   key,
		ExpiresIn:    time.Hour,
		sessions:     map[string]bool{},
	}
	ret.router = ret.newRouter()
	return ret, nil
}
