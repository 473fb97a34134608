package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/viant/afmcp/event"
	"github.com/viant/afmcp/metrics"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/schema"
	protoserver "github.com/viant/mcp-protocol/server"
)

// Bridge is the conversation surface served by the MCP handlers.
type Bridge interface {
	HandleUserMessage(ctx context.Context, sessionID, text string) (<-chan event.Downstream, error)
	HandleElicitationAnswer(ctx context.Context, sessionID, elicitationID, text string) error
	HandleElicitationDecline(ctx context.Context, sessionID, elicitationID string) error
	SessionClosed(sessionID string)
}

// Server represents MCP protocol handler
type Server struct {
	bridge          Bridge
	info            schema.Implementation
	instructions    *string
	protocolVersion string
	loggerName      string
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tool            schema.Tool
	cors            *Cors
	httpServer
}

// NewHandler creates a handler for a new transport session.
func (s *Server) NewHandler(ctx context.Context, transport transport.Transport) transport.Handler {
	return s.newHandler(ctx, transport)
}

func (s *Server) newHandler(ctx context.Context, aTransport Transport) *Handler {
	ret := &Handler{
		server:       s,
		sessionID:    uuid.NewString(),
		transport:    aTransport,
		loggingLevel: schema.LoggingLevelInfo,
	}
	ret.Logger = NewLogger(s.loggerName, &ret.loggingLevel, aTransport)
	ret.client = NewClient(aTransport)
	ret.logger = s.logger.With("session", ret.sessionID)
	newImplementer := protoserver.WithDefaultHandler(ctx, func(implementer *protoserver.DefaultHandler) error {
		implementer.RegisterTool(&protoserver.ToolEntry{Metadata: s.tool, Handler: ret.ask})
		return nil
	})
	ret.implementer, ret.err = newImplementer(ctx, aTransport, ret.Logger, ret.client)
	ret.logger.Debug("transport session started")
	go func() {
		<-ctx.Done()
		ret.logger.Debug("transport session ended")
		s.bridge.SessionClosed(ret.sessionID)
	}()
	return ret
}

// New creates a new Server instance
func New(bridge Bridge, options ...Option) (*Server, error) {
	if bridge == nil {
		return nil, errors.New("bridge was nil")
	}
	tool, err := askTool()
	if err != nil {
		return nil, err
	}
	s := &Server{
		bridge: bridge,
		info: schema.Implementation{
			Name:    "agentforce",
			Version: "0.1",
		},
		loggerName:      "agentforce",
		protocolVersion: schema.LatestProtocolVersion,
		logger:          slog.Default(),
		tool:            tool,
		cors:            defaultCors(),
		httpServer: httpServer{
			sseURI:        "/sse",
			sseMessageURI: "/message",
			streamableURI: "/mcp",
			handlers:      map[string]http.Handler{},
		},
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}
