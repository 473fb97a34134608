package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/viant/afmcp/errs"
	"github.com/viant/afmcp/metrics"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const flightKey = "token"

// Manager issues access tokens using the client-credentials grant.
type Manager struct {
	config     *Config
	grant      *clientcredentials.Config
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	mux   sync.Mutex
	token *Token
	group singleflight.Group
}

// Token returns the cached token or fetches a new one when it is missing or
// within the refresh margin.
func (m *Manager) Token(ctx context.Context) (*Token, error) {
	if token := m.cached(); token != nil {
		return token, nil
	}
	return m.fetch(ctx)
}

// Refresh discards rejected and returns a freshly issued token. If the cache
// already holds a different token, another caller refreshed first and that
// token is returned without a new request.
func (m *Manager) Refresh(ctx context.Context, rejected *Token) (*Token, error) {
	m.mux.Lock()
	current := m.token
	if current != nil && rejected != nil && current.Value != rejected.Value && current.ValidAt(m.now(), m.config.Margin) {
		m.mux.Unlock()
		return current, nil
	}
	m.token = nil
	m.mux.Unlock()
	m.metrics.Token("rejected")
	return m.fetch(ctx)
}

func (m *Manager) cached() *Token {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.token.ValidAt(m.now(), m.config.Margin) {
		return m.token
	}
	return nil
}

// fetch joins or starts the shared token request. The request runs detached
// from ctx so one caller giving up does not fail the others.
func (m *Manager) fetch(ctx context.Context) (*Token, error) {
	ch := m.group.DoChan(flightKey, func() (interface{}, error) {
		if token := m.cached(); token != nil {
			return token, nil
		}
		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.config.Timeout)
		defer cancel()
		token, err := m.request(reqCtx)
		if err != nil {
			m.metrics.Token("error")
			return nil, err
		}
		m.metrics.Token("ok")
		m.mux.Lock()
		m.token = token
		m.mux.Unlock()
		return token, nil
	})
	select {
	case <-ctx.Done():
		return nil, errs.Classify(errs.KindAuth, "token", ctx.Err())
	case result := <-ch:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*Token), nil
	}
}

func (m *Manager) request(ctx context.Context) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	issued, err := m.grant.Token(ctx)
	if err != nil {
		return nil, m.classify(err)
	}
	if issued.AccessToken == "" {
		return nil, errs.Auth("token", fmt.Errorf("token endpoint returned no access token"))
	}
	token := &Token{Value: issued.AccessToken, ExpiresAt: m.expiry(issued)}
	m.logger.Debug("access token issued", "expiresAt", token.ExpiresAt)
	return token, nil
}

// expiry resolves the token expiry from expires_in, then the JWT exp claim,
// then the configured default lifetime.
func (m *Manager) expiry(issued *oauth2.Token) time.Time {
	if !issued.Expiry.IsZero() {
		return issued.Expiry
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(issued.AccessToken, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return m.now().Add(m.config.Lifetime)
}

func (m *Manager) classify(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		status := retrieveErr.Response.StatusCode
		switch status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			m.logger.Warn("token request rejected", "status", status, "code", retrieveErr.ErrorCode)
			return errs.Status(errs.KindAuth, "token", status, err)
		}
		return errs.Status(errs.KindUpstream, "token", status, err)
	}
	return errs.Classify(errs.KindUpstream, "token", err)
}

// New creates a token manager.
func New(config *Config, options ...Option) (*Manager, error) {
	if config == nil {
		return nil, fmt.Errorf("auth: config was nil")
	}
	cfg := *config
	cfg.Init()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ret := &Manager{
		config: &cfg,
		grant: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret, nil
}
