package server

import (
	"context"
	"net/http"

	"github.com/viant/jsonrpc/transport/server/http/sse"
	"github.com/viant/jsonrpc/transport/server/http/streamable"
)

const healthURI = "/healthz"

type httpServer struct {
	useStreamableHTTP bool
	sseURI            string
	sseMessageURI     string
	streamableURI     string
	handlers          map[string]http.Handler
}

// Handler returns the HTTP routes of the server: both MCP transports behind
// the middleware chain, metrics and health.
func (s *Server) Handler() http.Handler {
	sseHandler := sse.New(s.NewHandler,
		sse.WithURI(s.sseURI),
		sse.WithMessageURI(s.sseMessageURI),
	)
	streamingHandler := streamable.New(s.NewHandler,
		streamable.WithURI(s.streamableURI),
	)
	middlewares := []Middleware{
		protocolVersionMiddleware(),
		s.cors.Middleware,
		originValidationMiddleware(s.cors.AllowOrigins),
	}
	sseChain := ChainMiddlewareHandlers(sseHandler, middlewares...)
	streamChain := ChainMiddlewareHandlers(streamingHandler, middlewares...)

	mux := http.NewServeMux()
	for path, handler := range s.handlers {
		mux.Handle(path, handler)
	}
	mux.Handle(s.sseURI, sseChain)
	mux.Handle(s.sseMessageURI, sseChain)
	mux.Handle(s.streamableURI, streamChain)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc(healthURI, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		target := s.sseURI
		if s.useStreamableHTTP {
			target = s.streamableURI
		}
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	})
	return mux
}

// HTTP creates an http.Server serving Handler on addr.
func (s *Server) HTTP(_ context.Context, addr string) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
}
