// Package config loads the bridge configuration from flags, environment and
// an optional YAML file.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIBaseURL         = "https://api.salesforce.com"
	DefaultPort               = 8000
	DefaultTransport          = TransportStreamable
	DefaultTokenTimeout       = 30 * time.Second
	DefaultRequestTimeout     = 30 * time.Second
	DefaultTurnTimeout        = 2 * time.Minute
	DefaultElicitationTimeout = 5 * time.Minute
	DefaultSessionIdleTimeout = 30 * time.Minute

	TransportStreamable = "streamable"
	TransportSSE        = "sse"
	TransportStdio      = "stdio"
)

// Config represents the bridge configuration.
type Config struct {
	ConfigURL          string        `short:"c" long:"config" description:"YAML config file URL" yaml:"-" json:"-"`
	ClientID           string        `long:"client-id" env:"SF_CLIENT_ID" description:"connected app consumer key" yaml:"ClientID,omitempty" json:"clientID,omitempty"`
	ClientSecret       string        `long:"client-secret" env:"SF_CLIENT_SECRET" description:"connected app consumer secret" yaml:"ClientSecret,omitempty" json:"-"`
	DomainURL          string        `long:"domain-url" env:"SF_DOMAIN_URL" description:"org My Domain URL" yaml:"DomainURL,omitempty" json:"domainURL,omitempty"`
	AgentID            string        `long:"agent-id" env:"AGENTFORCE_AGENT_ID" description:"Agentforce agent id" yaml:"AgentID,omitempty" json:"agentID,omitempty"`
	APIBaseURL         string        `long:"api-url" env:"AGENTFORCE_API_URL" description:"Agent API base URL" yaml:"APIBaseURL,omitempty" json:"apiBaseURL,omitempty"`
	Port               int           `short:"p" long:"port" env:"PORT" description:"HTTP listen port" yaml:"Port,omitempty" json:"port,omitempty"`
	Transport          string        `short:"t" long:"transport" env:"MCP_TRANSPORT" description:"default MCP transport" choice:"streamable" choice:"sse" choice:"stdio" yaml:"Transport,omitempty" json:"transport,omitempty"`
	OAuth2ConfigURL    string        `long:"oauth2-config" env:"SF_OAUTH2_CONFIG_URL" description:"scy OAuth2 client config URL" yaml:"OAuth2ConfigURL,omitempty" json:"oauth2ConfigURL,omitempty"`
	EncryptionKey      string        `long:"encryption-key" env:"SF_ENCRYPTION_KEY" description:"scy key decrypting the OAuth2 config" yaml:"EncryptionKey,omitempty" json:"-"`
	TokenTimeout       time.Duration `long:"token-timeout" description:"token request timeout" yaml:"TokenTimeout,omitempty" json:"tokenTimeout,omitempty"`
	RequestTimeout     time.Duration `long:"request-timeout" description:"Agent API request timeout" yaml:"RequestTimeout,omitempty" json:"requestTimeout,omitempty"`
	TurnTimeout        time.Duration `long:"turn-timeout" description:"upstream turn timeout" yaml:"TurnTimeout,omitempty" json:"turnTimeout,omitempty"`
	ElicitationTimeout time.Duration `long:"elicitation-timeout" description:"elicitation answer timeout" yaml:"ElicitationTimeout,omitempty" json:"elicitationTimeout,omitempty"`
	SessionIdleTimeout time.Duration `long:"session-idle-timeout" description:"idle session expiry" yaml:"SessionIdleTimeout,omitempty" json:"sessionIdleTimeout,omitempty"`
	AllowOrigins       []string      `long:"allow-origin" description:"allowed browser origin, repeatable" yaml:"AllowOrigins,omitempty" json:"allowOrigins,omitempty"`
	LogLevel           string        `long:"log-level" env:"LOG_LEVEL" description:"log level" choice:"debug" choice:"info" choice:"warn" choice:"error" yaml:"LogLevel,omitempty" json:"logLevel,omitempty"`
	LogFormat          string        `long:"log-format" env:"LOG_FORMAT" description:"log format" choice:"text" choice:"json" yaml:"LogFormat,omitempty" json:"logFormat,omitempty"`
}

// Init applies defaults.
func (c *Config) Init() {
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Transport == "" {
		c.Transport = DefaultTransport
	}
	if c.TokenTimeout == 0 {
		c.TokenTimeout = DefaultTokenTimeout
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.TurnTimeout == 0 {
		c.TurnTimeout = DefaultTurnTimeout
	}
	if c.ElicitationTimeout == 0 {
		c.ElicitationTimeout = DefaultElicitationTimeout
	}
	if c.SessionIdleTimeout == 0 {
		c.SessionIdleTimeout = DefaultSessionIdleTimeout
	}
	if len(c.AllowOrigins) == 0 {
		c.AllowOrigins = []string{"*"}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	c.DomainURL = strings.TrimRight(c.DomainURL, "/")
}

// Validate checks required values; credentials may come from OAuth2ConfigURL instead.
func (c *Config) Validate() error {
	var missing []string
	if c.OAuth2ConfigURL == "" {
		if c.ClientID == "" {
			missing = append(missing, "SF_CLIENT_ID")
		}
		if c.ClientSecret == "" {
			missing = append(missing, "SF_CLIENT_SECRET")
		}
	}
	if c.DomainURL == "" {
		missing = append(missing, "SF_DOMAIN_URL")
	}
	if c.AgentID == "" {
		missing = append(missing, "AGENTFORCE_AGENT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v", strings.Join(missing, ", "))
	}
	if !strings.HasPrefix(c.DomainURL, "https://") && !strings.HasPrefix(c.DomainURL, "http://") {
		return fmt.Errorf("invalid SF_DOMAIN_URL %q: expected http(s) URL", c.DomainURL)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %v", c.Port)
	}
	switch c.Transport {
	case TransportStreamable, TransportSSE, TransportStdio:
	default:
		return fmt.Errorf("unsupported transport: %v", c.Transport)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load parses args and environment, overlays the --config YAML file under
// them, applies defaults and validates the result.
func Load(ctx context.Context, args []string) (*Config, error) {
	cfg := &Config{}
	if _, err := flags.ParseArgs(cfg, args); err != nil {
		return nil, err
	}
	if cfg.ConfigURL != "" {
		file, err := loadFile(ctx, cfg.ConfigURL)
		if err != nil {
			return nil, err
		}
		cfg.merge(file)
	}
	cfg.Init()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(ctx context.Context, URL string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download config %v: %w", URL, err)
	}
	ret := &Config{}
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to parse config %v: %w", URL, err)
	}
	return ret, nil
}

// merge fills values not set by flags or environment from file.
func (c *Config) merge(file *Config) {
	setString(&c.ClientID, file.ClientID)
	setString(&c.ClientSecret, file.ClientSecret)
	setString(&c.DomainURL, file.DomainURL)
	setString(&c.AgentID, file.AgentID)
	setString(&c.APIBaseURL, file.APIBaseURL)
	setString(&c.Transport, file.Transport)
	setString(&c.OAuth2ConfigURL, file.OAuth2ConfigURL)
	setString(&c.EncryptionKey, file.EncryptionKey)
	setString(&c.LogLevel, file.LogLevel)
	setString(&c.LogFormat, file.LogFormat)
	if c.Port == 0 {
		c.Port = file.Port
	}
	setDuration(&c.TokenTimeout, file.TokenTimeout)
	setDuration(&c.RequestTimeout, file.RequestTimeout)
	setDuration(&c.TurnTimeout, file.TurnTimeout)
	setDuration(&c.ElicitationTimeout, file.ElicitationTimeout)
	setDuration(&c.SessionIdleTimeout, file.SessionIdleTimeout)
	if len(c.AllowOrigins) == 0 {
		c.AllowOrigins = file.AllowOrigins
	}
}

func setString(dest *string, value string) {
	if *dest == "" {
		*dest = value
	}
}

func setDuration(dest *time.Duration, value time.Duration) {
	if *dest == 0 {
		*dest = value
	}
}
