package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afmcp/errs"
)

type tokenServer struct {
	*httptest.Server
	requests  atomic.Int32
	delay     time.Duration
	expiresIn int
	token     func(n int32) string
	status    int
}

func newTokenServer(t *testing.T) *tokenServer {
	ret := &tokenServer{expiresIn: 3600}
	ret.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := ret.requests.Add(1)
		assert.Equal(t, tokenPath, r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, ClientCredentialsGrant, r.Form.Get("grant_type"))
		assert.Equal(t, "id", r.Form.Get("client_id"))
		assert.Equal(t, "secret", r.Form.Get("client_secret"))
		if ret.delay > 0 {
			time.Sleep(ret.delay)
		}
		w.Header().Set("Content-Type", "application/json")
		if ret.status != 0 {
			w.WriteHeader(ret.status)
			_, _ = w.Write([]byte(`{"error":"invalid_client","error_description":"invalid client credentials"}`))
			return
		}
		body := map[string]interface{}{"token_type": "Bearer"}
		if ret.token != nil {
			body["access_token"] = ret.token(n)
		} else {
			body["access_token"] = fmt.Sprintf("token-%d", n)
		}
		if ret.expiresIn > 0 {
			body["expires_in"] = ret.expiresIn
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(ret.Close)
	return ret
}

func newManager(t *testing.T, server *tokenServer, options ...Option) *Manager {
	manager, err := New(&Config{ClientID: "id", ClientSecret: "secret", DomainURL: server.URL + "/"}, options...)
	require.NoError(t, err)
	return manager
}

func TestManager_Token(t *testing.T) {
	server := newTokenServer(t)
	manager := newManager(t, server)
	ctx := context.Background()

	first, err := manager.Token(ctx)
	require.NoError(t, err)
	second, err := manager.Token(ctx)
	require.NoError(t, err)

	assert.Equal(t, "token-1", first.Value)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, server.requests.Load())
	assert.WithinDuration(t, time.Now().Add(time.Hour), first.ExpiresAt, 5*time.Second)
}

func TestManager_ConcurrentCallersShareRequest(t *testing.T) {
	server := newTokenServer(t)
	server.delay = 50 * time.Millisecond
	manager := newManager(t, server)

	var wg sync.WaitGroup
	values := make([]string, 20)
	for i := range values {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := manager.Token(context.Background())
			if assert.NoError(t, err) {
				values[i] = token.Value
			}
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 1, server.requests.Load())
	for _, value := range values {
		assert.Equal(t, "token-1", value)
	}
}

func TestManager_RefreshWithinMargin(t *testing.T) {
	server := newTokenServer(t)
	offset := time.Duration(0)
	manager := newManager(t, server, WithClock(func() time.Time { return time.Now().Add(offset) }))
	ctx := context.Background()

	_, err := manager.Token(ctx)
	require.NoError(t, err)
	offset = time.Hour - 30*time.Second
	token, err := manager.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-2", token.Value)
	assert.EqualValues(t, 2, server.requests.Load())
}

func TestManager_Refresh(t *testing.T) {
	server := newTokenServer(t)
	manager := newManager(t, server)
	ctx := context.Background()

	rejected, err := manager.Token(ctx)
	require.NoError(t, err)
	refreshed, err := manager.Refresh(ctx, rejected)
	require.NoError(t, err)
	assert.Equal(t, "token-2", refreshed.Value)

	// a late caller holding the same rejected token gets the already refreshed one
	again, err := manager.Refresh(ctx, rejected)
	require.NoError(t, err)
	assert.Same(t, refreshed, again)
	assert.EqualValues(t, 2, server.requests.Load())
}

func TestManager_Rejected(t *testing.T) {
	server := newTokenServer(t)
	server.status = http.StatusBadRequest
	manager := newManager(t, server)

	_, err := manager.Token(context.Background())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindAuth))
	assert.Contains(t, err.Error(), "status 400")
}

func TestManager_CallerContext(t *testing.T) {
	server := newTokenServer(t)
	server.delay = 200 * time.Millisecond
	manager := newManager(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := manager.Token(ctx)
	require.Error(t, err)

	// the shared request still completes for other callers
	token, err := manager.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token.Value)
}

func TestManager_Expiry(t *testing.T) {
	exp := time.Now().Add(20 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}).SignedString([]byte("key"))
	require.NoError(t, err)

	var testCases = []struct {
		description string
		expiresIn   int
		token       string
		expect      time.Time
	}{
		{description: "expires_in", expiresIn: 600, token: signed, expect: time.Now().Add(10 * time.Minute)},
		{description: "jwt exp claim", token: signed, expect: exp},
		{description: "default lifetime", token: "opaque", expect: time.Now().Add(time.Hour)},
	}
	for _, testCase := range testCases {
		server := newTokenServer(t)
		server.expiresIn = testCase.expiresIn
		value := testCase.token
		server.token = func(int32) string { return value }
		manager := newManager(t, server)
		token, err := manager.Token(context.Background())
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		assert.WithinDuration(t, testCase.expect, token.ExpiresAt, 5*time.Second, testCase.description)
	}
}

func TestConfig_Validate(t *testing.T) {
	_, err := New(&Config{ClientID: "id", ClientSecret: "secret"})
	assert.Error(t, err)
	cfg := &Config{DomainURL: "https://org.my.salesforce.com/"}
	cfg.Init()
	assert.Equal(t, "https://org.my.salesforce.com/services/oauth2/token", cfg.TokenURL)
	assert.Equal(t, defaultMargin, cfg.Margin)
}
