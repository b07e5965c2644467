// Package grantkit derives an OAuth2 grant from credential fields and builds
// the token endpoint request for it.
package grantkit

import (
	"net/url"
	"strings"
	"time"

	"github.com/PaulFidika/tokenkit/core"
	jwtkit "github.com/PaulFidika/tokenkit/jwt"
)

// Well-known grant types.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
	//nolint:gosec // G101: OAuth2 URN identifier, not a credential
	GrantJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

const (
	DefaultTokenURL  = "https://oauth2.googleapis.com/token"
	DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"

	// DefaultExpiry is how long signed assertions stay valid.
	DefaultExpiry = time.Hour
	// DefaultSkew is subtracted from iat to absorb clock drift.
	DefaultSkew = time.Minute
)

var knownGrantTypes = map[string]struct{}{
	GrantAuthorizationCode: {},
	GrantRefreshToken:      {},
	GrantPassword:          {},
	GrantClientCredentials: {},
}

// IsKnownGrantType reports whether gt is one of the standard RFC 6749 grants.
func IsKnownGrantType(gt string) bool {
	_, ok := knownGrantTypes[gt]
	return ok
}

// Config identifies one grant and carries the fields it needs. Build never
// mutates it.
type Config struct {
	TokenURL string

	ClientID     string
	ClientSecret string

	// authorization_code
	Code        string
	RedirectURI string

	// password
	Username string
	Password string

	// refresh_token
	RefreshToken string

	// jwt-bearer assertion profile
	Issuer           string
	Audience         string
	Subject          string
	Scope            []string
	SigningKey       any // PEM bytes/string, *rsa.PrivateKey, *ecdsa.PrivateKey or an HMAC secret
	SigningKeyID     string
	SigningAlgorithm string
	AdditionalClaims map[string]any
	Expiry           time.Duration // zero selects DefaultExpiry
	Skew             time.Duration // zero selects DefaultSkew

	// GrantType overrides resolution. Must be a known grant type or an
	// absolute URI naming an extension grant.
	GrantType       string
	ExtensionParams map[string]string
}

// ParseScope splits a space-delimited scope string.
func ParseScope(scope string) []string {
	return strings.Fields(scope)
}

// ScopeString joins the configured scopes with spaces.
func (c Config) ScopeString() string {
	return strings.Join(c.Scope, " ")
}

// Validate checks the fields whose values are constrained regardless of the
// grant in use.
func (c Config) Validate() error {
	if c.GrantType != "" && !IsKnownGrantType(c.GrantType) && c.GrantType != GrantJWTBearer && !isAbsoluteURI(c.GrantType) {
		return core.Configf("grant_type", "invalid grant type %q", c.GrantType)
	}
	// "postmessage" is a reserved redirect value for JS sign-in flows.
	if c.RedirectURI != "" && c.RedirectURI != "postmessage" && !isAbsoluteURI(c.RedirectURI) {
		return core.Configf("redirect_uri", "redirect URI must be absolute")
	}
	for _, s := range c.Scope {
		if strings.Contains(s, " ") {
			return core.Configf("scope", "array scope values should not contain spaces")
		}
	}
	if c.SigningAlgorithm != "" && !jwtkit.IsKnownAlgorithm(c.SigningAlgorithm) {
		return core.Configf("signing_algorithm", "unknown signing algorithm %q", c.SigningAlgorithm)
	}
	return nil
}

// ResolveGrantType returns the explicit override when set, otherwise infers
// the grant from populated fields: code, then refresh token, then
// username+password, then issuer+signing key.
func (c Config) ResolveGrantType() (string, error) {
	if c.GrantType != "" {
		if err := c.Validate(); err != nil {
			return "", err
		}
		return c.GrantType, nil
	}
	switch {
	case c.Code != "":
		return GrantAuthorizationCode, nil
	case c.RefreshToken != "":
		return GrantRefreshToken, nil
	case c.Username != "" && c.Password != "":
		return GrantPassword, nil
	case c.Issuer != "" && c.SigningKey != nil:
		return GrantJWTBearer, nil
	}
	return "", core.Configf("grant_type", "unable to determine grant type from the configured fields")
}

func isAbsoluteURI(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && (u.Host != "" || u.Path != "" || u.Opaque != "")
}
