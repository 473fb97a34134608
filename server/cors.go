package server

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	allowOriginHeader      = "Access-Control-Allow-Origin"
	allowHeadersHeader     = "Access-Control-Allow-Headers"
	allowMethodsHeader     = "Access-Control-Allow-Methods"
	requestMethodHeader    = "Access-Control-Request-Method"
	allowCredentialsHeader = "Access-Control-Allow-Credentials"
	exposeHeadersHeader    = "Access-Control-Expose-Headers"
	maxAgeHeader           = "Access-Control-Max-Age"
	separator              = ", "
)

// Cors is the CORS policy applied to the MCP endpoints.
type Cors struct {
	AllowCredentials *bool    `yaml:"AllowCredentials,omitempty" json:"allowCredentials,omitempty"`
	AllowHeaders     []string `yaml:"AllowHeaders,omitempty" json:"allowHeaders,omitempty"`
	AllowOrigins     []string `yaml:"AllowOrigins,omitempty" json:"allowOrigins,omitempty"`
	ExposeHeaders    []string `yaml:"ExposeHeaders,omitempty" json:"exposeHeaders,omitempty"`
	MaxAge           *int64   `yaml:"MaxAge,omitempty" json:"maxAge,omitempty"`
}

func (c *Cors) allows(origin string) bool {
	for _, candidate := range c.AllowOrigins {
		if candidate == "*" || candidate == origin {
			return true
		}
	}
	return false
}

// Middleware sets CORS headers and answers preflight requests.
func (c *Cors) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.setHeaders(w, r)
		if r.Method == http.MethodOptions && r.Header.Get(requestMethodHeader) != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *Cors) setHeaders(w http.ResponseWriter, r *http.Request) {
	header := w.Header()
	origin := r.Header.Get("Origin")
	switch {
	case origin == "" && c.allows("*"):
		header.Set(allowOriginHeader, "*")
	case origin != "" && c.allows(origin):
		header.Set(allowOriginHeader, origin)
		header.Add("Vary", "Origin")
	}
	if method := r.Header.Get(requestMethodHeader); method != "" {
		header.Set(allowMethodsHeader, method)
	} else {
		header.Set(allowMethodsHeader, "GET, POST, DELETE, OPTIONS")
	}
	if len(c.AllowHeaders) > 0 {
		allowed := strings.Join(c.AllowHeaders, separator)
		if allowed == "*" {
			allowed = "Content-Type, Authorization, Mcp-Session-Id, " + protocolVersionHeader
		}
		header.Set(allowHeadersHeader, allowed)
	}
	if c.AllowCredentials != nil {
		header.Set(allowCredentialsHeader, strconv.FormatBool(*c.AllowCredentials))
	}
	if c.MaxAge != nil {
		header.Set(maxAgeHeader, strconv.FormatInt(*c.MaxAge, 10))
	}
	if len(c.ExposeHeaders) > 0 {
		exposed := strings.Join(c.ExposeHeaders, separator)
		if exposed == "*" {
			exposed = "Mcp-Session-Id, " + protocolVersionHeader
		}
		header.Set(exposeHeadersHeader, exposed)
	}
}

func defaultCors() *Cors {
	return &Cors{
		AllowHeaders:  []string{"*"},
		AllowOrigins:  []string{"*"},
		ExposeHeaders: []string{"*"},
	}
}
