package auth

import (
	"fmt"
	"strings"
	"time"
)

const (
	tokenPath              = "/services/oauth2/token"
	defaultMargin          = 60 * time.Second
	defaultTimeout         = 30 * time.Second
	defaultLifetime        = time.Hour
	ClientCredentialsGrant = "client_credentials"
)

// Config holds client-credentials inputs.
type Config struct {
	ClientID     string
	ClientSecret string
	// DomainURL is the org My Domain URL; the token endpoint is derived from it
	// unless TokenURL is set.
	DomainURL string
	TokenURL  string
	// Margin is how long before expiry a token is considered stale.
	Margin time.Duration
	// Timeout bounds a single token request.
	Timeout time.Duration
	// Lifetime is assumed when the token endpoint reports no expiry.
	Lifetime time.Duration
}

// Init applies defaults.
func (c *Config) Init() {
	if c.TokenURL == "" && c.DomainURL != "" {
		c.TokenURL = strings.TrimRight(c.DomainURL, "/") + tokenPath
	}
	if c.Margin <= 0 {
		c.Margin = defaultMargin
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Lifetime <= 0 {
		c.Lifetime = defaultLifetime
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("auth: client id was empty")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("auth: client secret was empty")
	}
	if c.TokenURL == "" {
		return fmt.Errorf("auth: token url was empty, set domain url")
	}
	return nil
}
