package server

import (
	"net/http"

	"github.com/viant/mcp-protocol/schema"
)

const protocolVersionHeader = "MCP-Protocol-Version"

// supportedProtocolVersions lists the MCP revisions the handlers can serve.
var supportedProtocolVersions = func() map[string]bool {
	ret := map[string]bool{"2024-11-05": true, "2025-03-26": true, "2025-06-18": true}
	ret[schema.LatestProtocolVersion] = true
	return ret
}()

// Middleware is a function that takes an http.Handler and returns an http.Handler
type Middleware func(next http.Handler) http.Handler

// ChainMiddlewareHandlers wraps h so that the first middleware is outermost.
func ChainMiddlewareHandlers(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// protocolVersionMiddleware rejects unsupported MCP-Protocol-Version values;
// a missing header is accepted.
func protocolVersionMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			version := r.Header.Get(protocolVersionHeader)
			if version != "" && !supportedProtocolVersions[version] {
				http.Error(w, "unsupported "+protocolVersionHeader+": "+version, http.StatusBadRequest)
				return
			}
			if version == "" {
				version = schema.LatestProtocolVersion
			}
			w.Header().Set(protocolVersionHeader, version)
			next.ServeHTTP(w, r)
		})
	}
}

// originValidationMiddleware rejects browser requests from origins outside
// allowed; "*" allows any origin and requests without Origin pass.
func originValidationMiddleware(allowed []string) Middleware {
	origins := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		origins[origin] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && !origins["*"] && !origins[origin] {
				http.Error(w, "origin not allowed", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
