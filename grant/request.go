package grantkit

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaulFidika/tokenkit/core"
)

// Build derives the grant from cfg and returns the token endpoint request.
// It is a pure function of cfg and now apart from signing assertions.
func Build(ctx context.Context, cfg Config, now time.Time) (*http.Request, error) {
	if cfg.TokenURL == "" {
		return nil, core.Configf("token_url", "no token credential URI was set")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	gt, err := cfg.ResolveGrantType()
	if err != nil {
		return nil, err
	}

	params := url.Values{"grant_type": {gt}}
	switch gt {
	case GrantAuthorizationCode:
		if cfg.Code == "" {
			return nil, core.Configf("code", "missing authorization code")
		}
		params.Set("code", cfg.Code)
		if cfg.RedirectURI != "" {
			params.Set("redirect_uri", cfg.RedirectURI)
		}
		addClientCredentials(params, cfg)
	case GrantPassword:
		if cfg.Username == "" {
			return nil, core.Configf("username", "missing username")
		}
		if cfg.Password == "" {
			return nil, core.Configf("password", "missing password")
		}
		params.Set("username", cfg.Username)
		params.Set("password", cfg.Password)
		addClientCredentials(params, cfg)
	case GrantRefreshToken:
		if cfg.RefreshToken == "" {
			return nil, core.Configf("refresh_token", "missing refresh token")
		}
		params.Set("refresh_token", cfg.RefreshToken)
		addClientCredentials(params, cfg)
	case GrantClientCredentials:
		if cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, core.Configf("client_secret", "client_credentials requires client id and secret")
		}
		addClientCredentials(params, cfg)
		if len(cfg.Scope) > 0 {
			params.Set("scope", cfg.ScopeString())
		}
	case GrantJWTBearer:
		assertion, err := Assertion(ctx, cfg, now)
		if err != nil {
			return nil, err
		}
		params.Set("assertion", assertion)
	default:
		if cfg.RedirectURI != "" {
			// A redirect URI means authorization_code was intended.
			return nil, core.Configf("code", "missing authorization code")
		}
		for k, v := range cfg.ExtensionParams {
			if k == "grant_type" {
				continue
			}
			params.Set(k, v)
		}
	}

	return newFormRequest(ctx, cfg.TokenURL, params)
}

// BuildRevokeRequest returns the request revoking token at revokeURL
// (DefaultRevokeURL when empty).
func BuildRevokeRequest(ctx context.Context, revokeURL, token string) (*http.Request, error) {
	if token == "" {
		return nil, core.Configf("token", "no token to revoke")
	}
	if revokeURL == "" {
		revokeURL = DefaultRevokeURL
	}
	return newFormRequest(ctx, revokeURL, url.Values{"token": {token}})
}

// addClientCredentials attaches client id and secret only when both are set.
func addClientCredentials(params url.Values, cfg Config) {
	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		params.Set("client_id", cfg.ClientID)
		params.Set("client_secret", cfg.ClientSecret)
	}
}

func newFormRequest(ctx context.Context, target string, params url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, core.Configf("token_url", "invalid endpoint: %v", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}
