package auth

import (
	"context"
	"fmt"

	"github.com/viant/scy/auth/authorizer"
)

// LoadConfig reads client credentials from an OAuth2 client config resource
// (local file or any afs supported URL). When encryptionKey is set the resource
// is decrypted with it. Fields already set on dest take precedence.
func LoadConfig(ctx context.Context, configURL, encryptionKey string, dest *Config) error {
	if configURL == "" {
		return nil
	}
	URL := configURL
	if encryptionKey != "" {
		URL += "|" + encryptionKey
	}
	oauthCfg := &authorizer.OAuthConfig{ConfigURL: URL}
	if err := authorizer.New().EnsureConfig(ctx, oauthCfg); err != nil {
		return fmt.Errorf("failed to load oauth2 config %q: %w", configURL, err)
	}
	if oauthCfg.Config == nil {
		return fmt.Errorf("oauth2 config %q was empty", configURL)
	}
	if dest.ClientID == "" {
		dest.ClientID = oauthCfg.Config.ClientID
	}
	if dest.ClientSecret == "" {
		dest.ClientSecret = oauthCfg.Config.ClientSecret
	}
	if dest.TokenURL == "" && dest.DomainURL == "" {
		dest.TokenURL = oauthCfg.Config.Endpoint.TokenURL
	}
	return nil
}
