package afmcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/viant/afmcp/agent"
	"github.com/viant/afmcp/auth"
	"github.com/viant/afmcp/bridge"
	"github.com/viant/afmcp/config"
	"github.com/viant/afmcp/metrics"
	"github.com/viant/afmcp/server"
	"github.com/viant/mcp-protocol/schema"
)

const shutdownTimeout = 10 * time.Second

const instructions = "Use ask_agentforce to talk to the Agentforce agent. Follow-up questions continue the same conversation."

// Service is a configured bridge process.
type Service struct {
	config    *config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	transport http.RoundTripper
	tokens    *auth.Manager
	bridge    *bridge.Service
	server    *server.Server
}

// Start verifies the credentials with an initial token request.
func (s *Service) Start(ctx context.Context) error {
	if _, err := s.tokens.Token(ctx); err != nil {
		return fmt.Errorf("initial token request failed: %w", err)
	}
	s.logger.Info("salesforce credentials verified", "domain", s.config.DomainURL, "agent", s.config.AgentID)
	return nil
}

// Handler returns the HTTP routes of the MCP server.
func (s *Service) Handler() http.Handler {
	return s.server.Handler()
}

// Serve runs the configured transport until ctx is cancelled, then closes
// every bridge session.
func (s *Service) Serve(ctx context.Context) error {
	defer s.bridge.Close()
	if s.config.Transport == config.TransportStdio {
		s.logger.Info("serving mcp over stdio")
		return s.server.Stdio(ctx).ListenAndServe()
	}
	httpServer := s.server.HTTP(ctx, s.config.Addr())
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	s.logger.Info("serving mcp over http", "addr", httpServer.Addr, "transport", s.config.Transport)
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown incomplete", "error", err)
		_ = httpServer.Close()
	}
	return nil
}

// Close releases every bridge session.
func (s *Service) Close() {
	s.bridge.Close()
}

func (s *Service) httpClient() *http.Client {
	if s.transport == nil {
		return http.DefaultClient
	}
	return &http.Client{Transport: s.transport}
}

// New creates a service from cfg.
func New(ctx context.Context, cfg *config.Config, options ...Option) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config was nil")
	}
	ret := &Service{config: cfg, logger: slog.Default()}
	for _, opt := range options {
		opt(ret)
	}
	authConfig := &auth.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		DomainURL:    cfg.DomainURL,
		Timeout:      cfg.TokenTimeout,
	}
	if err := auth.LoadConfig(ctx, cfg.OAuth2ConfigURL, cfg.EncryptionKey, authConfig); err != nil {
		return nil, err
	}
	var err error
	if ret.tokens, err = auth.New(authConfig,
		auth.WithHTTPClient(ret.httpClient()),
		auth.WithLogger(ret.logger.With("component", "auth")),
		auth.WithMetrics(ret.metrics),
	); err != nil {
		return nil, err
	}
	agentClient := agent.New(ret.tokens,
		agent.WithBaseURL(cfg.APIBaseURL),
		agent.WithDomainURL(cfg.DomainURL),
		agent.WithTimeout(cfg.RequestTimeout),
		agent.WithTransport(ret.transport),
		agent.WithLogger(ret.logger.With("component", "agent")),
	)
	ret.bridge = bridge.New(agentClient, cfg.AgentID,
		bridge.WithTurnTimeout(cfg.TurnTimeout),
		bridge.WithElicitationTimeout(cfg.ElicitationTimeout),
		bridge.WithSessionIdleTimeout(cfg.SessionIdleTimeout),
		bridge.WithLogger(ret.logger.With("component", "bridge")),
		bridge.WithMetrics(ret.metrics),
	)
	if ret.server, err = server.New(ret.bridge,
		server.WithImplementation(schema.Implementation{Name: "agentforce", Version: Version}),
		server.WithInstructions(instructions),
		server.WithLogger(ret.logger.With("component", "server")),
		server.WithMetrics(ret.metrics),
		server.WithStreamableHTTP(cfg.Transport != config.TransportSSE),
		server.WithCORS(&server.Cors{AllowOrigins: cfg.AllowOrigins, AllowHeaders: []string{"*"}, ExposeHeaders: []string{"*"}}),
	); err != nil {
		ret.bridge.Close()
		return nil, err
	}
	return ret, nil
}
