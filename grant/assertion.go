package grantkit

import (
	"context"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/PaulFidika/tokenkit/core"
	jwtkit "github.com/PaulFidika/tokenkit/jwt"
)

// Assertion mints the signed JWT sent with the jwt-bearer grant.
//
// Claims are {iss, aud, exp: now+Expiry, iat: now-Skew}, plus scope and sub
// when set. AdditionalClaims are merged last and may override any of them.
func Assertion(ctx context.Context, cfg Config, now time.Time) (string, error) {
	if cfg.SigningKey == nil {
		return "", core.Configf("signing_key", "no signing key available")
	}
	if cfg.SigningAlgorithm == "" {
		return "", core.Configf("signing_algorithm", "no signing algorithm specified")
	}
	if cfg.Issuer == "" {
		return "", core.Configf("iss", "should not be empty")
	}
	if cfg.Audience == "" {
		return "", core.Configf("aud", "should not be empty")
	}

	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	skew := cfg.Skew
	if skew <= 0 {
		skew = DefaultSkew
	}

	claims := jwt.MapClaims{
		"iss": cfg.Issuer,
		"aud": cfg.Audience,
		"exp": now.Add(expiry).Unix(),
		"iat": now.Add(-skew).Unix(),
	}
	if len(cfg.Scope) > 0 {
		claims["scope"] = cfg.ScopeString()
	}
	if cfg.Subject != "" {
		claims["sub"] = cfg.Subject
	}
	for k, v := range cfg.AdditionalClaims {
		claims[k] = v
	}

	signer, err := jwtkit.NewSigner(cfg.SigningAlgorithm, cfg.SigningKey, cfg.SigningKeyID)
	if err != nil {
		return "", core.Configf("signing_key", "%v", err)
	}
	return signer.Sign(ctx, claims)
}
