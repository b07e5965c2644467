package oidckit

import (
	"crypto/ecdsa"
	"crypto/rsa"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/PaulFidika/tokenkit/core"
)

// VerifyIDToken verifies an ID token, typically one held by a credential's
// token state, with a single public key. An empty idToken yields (nil, nil).
// Unlike Verify, the aud claim is mandatory and must equal audience.
func VerifyIDToken(idToken string, key any, audience string) (Claims, error) {
	if idToken == "" {
		return nil, nil
	}
	var methods []string
	switch key.(type) {
	case *rsa.PublicKey:
		methods = []string{AlgRS256}
	case *ecdsa.PublicKey:
		methods = []string{AlgES256}
	default:
		return nil, core.Verificationf(core.ErrUnsupportedAlgorithm, "unsupported key type %T", key)
	}

	mc := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(idToken, mc, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods(methods)); err != nil {
		return nil, classifyJWTError(err)
	}
	claims := Claims(mc)
	if _, ok := claims["aud"]; !ok {
		return nil, core.Verificationf(core.ErrAudienceMismatch, "no audience found in the id token")
	}
	if audience == "" || !claims.hasAudience(audience) {
		return nil, core.Verificationf(core.ErrAudienceMismatch, "wrong audience present in the id token")
	}
	return claims, nil
}
