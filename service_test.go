package afmcp

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afmcp/agent/mock"
	"github.com/viant/afmcp/config"
	"github.com/viant/afmcp/errs"
	"github.com/viant/afmcp/metrics"
)

func newConfig(upstream *mock.Service) *config.Config {
	cfg := &config.Config{
		ClientID:     upstream.ClientID,
		ClientSecret: upstream.ClientSecret,
		DomainURL:    upstream.URL,
		APIBaseURL:   upstream.URL,
		AgentID:      "0XxAgent",
	}
	cfg.Init()
	return cfg
}

func TestService_Start(t *testing.T) {
	var testCases = []struct {
		description string
		secret      string
		expectErr   bool
	}{
		{description: "valid credentials"},
		{description: "rejected credentials", secret: "wrong", expectErr: true},
	}
	for _, testCase := range testCases {
		upstream, err := mock.New()
		require.NoError(t, err)
		server := upstream.Start()
		cfg := newConfig(upstream)
		if testCase.secret != "" {
			cfg.ClientSecret = testCase.secret
		}
		srv, err := New(context.Background(), cfg, WithMetrics(metrics.New()))
		require.NoError(t, err, testCase.description)
		err = srv.Start(context.Background())
		if testCase.expectErr {
			require.Error(t, err, testCase.description)
			assert.True(t, errs.Is(err, errs.KindAuth), testCase.description)
		} else {
			require.NoError(t, err, testCase.description)
			assert.Equal(t, 1, upstream.TokenRequests(), testCase.description)
		}
		srv.Close()
		server.Close()
	}
}

func TestService_Handler(t *testing.T) {
	upstream, err := mock.New()
	require.NoError(t, err)
	server := upstream.Start()
	defer server.Close()
	srv, err := New(context.Background(), newConfig(upstream), WithMetrics(metrics.New()))
	require.NoError(t, err)
	defer srv.Close()

	recorder := httptest.NewRecorder()
	srv.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, strings.Contains(recorder.Body.String(), "afmcp_sessions_active"))
}

func TestService_ServeStopsOnCancel(t *testing.T) {
	upstream, err := mock.New()
	require.NoError(t, err)
	server := upstream.Start()
	defer server.Close()
	cfg := newConfig(upstream)
	cfg.Port = 0
	srv, err := New(context.Background(), cfg)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, srv.Serve(ctx))
}

func TestNewLogger(t *testing.T) {
	buffer := &bytes.Buffer{}
	logger := NewLogger(&config.Config{LogLevel: "warn", LogFormat: "json"}, buffer)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")
	assert.False(t, strings.Contains(buffer.String(), "hidden"))
	assert.True(t, strings.Contains(buffer.String(), `"msg":"shown"`))
}
