package agent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/viant/afmcp/auth"
	"github.com/viant/afmcp/errs"
)

// TokenSource supplies bearer tokens.
type TokenSource interface {
	Token(ctx context.Context) (*auth.Token, error)
	Refresh(ctx context.Context, rejected *auth.Token) (*auth.Token, error)
}

// RoundTripper authorizes requests with a bearer token; on 401 or 403 it
// refreshes the token and replays the request once.
type RoundTripper struct {
	tokens    TokenSource
	transport http.RoundTripper
}

func (r *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	token, err := r.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	first := clone(req)
	first.Header.Set("Authorization", "Bearer "+token.Value)
	resp, err := r.transport.RoundTrip(first)
	if err != nil || !rejected(resp.StatusCode) {
		return resp, err
	}
	discard(resp)

	if token, err = r.tokens.Refresh(ctx, token); err != nil {
		return nil, err
	}
	retry := clone(req)
	retry.Header.Set("Authorization", "Bearer "+token.Value)
	if resp, err = r.transport.RoundTrip(retry); err != nil {
		return nil, err
	}
	if rejected(resp.StatusCode) {
		detail := readDetail(resp)
		return nil, errs.Status(errs.KindAuth, req.Method+" "+req.URL.Path, resp.StatusCode, fmt.Errorf("token rejected after refresh: %s", detail))
	}
	return resp, nil
}

func rejected(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// clone copies r with a replayable body.
func clone(r *http.Request) *http.Request {
	cloned := r.Clone(r.Context())
	if r.Body != nil && r.Body != http.NoBody {
		buf, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(buf))
		cloned.Body = io.NopCloser(bytes.NewReader(buf))
	}
	return cloned
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}

// NewRoundTripper wraps transport, http.DefaultTransport when nil.
func NewRoundTripper(tokens TokenSource, transport http.RoundTripper) *RoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &RoundTripper{tokens: tokens, transport: transport}
}
