package jwtkit

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"fmt"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Signer issues asymmetric or HMAC-signed JWTs.
type Signer interface {
	// Algorithm returns the JWS algorithm (e.g., RS256, ES256).
	Algorithm() string
	// KID returns the key id placed in the header, or "".
	KID() string
	// Sign creates a signed JWT with provided claims.
	Sign(ctx context.Context, claims jwt.MapClaims) (token string, err error)
}

// knownSigningAlgorithms is the closed set of algorithms accepted for assertions.
var knownSigningAlgorithms = map[string]jwt.SigningMethod{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
	"RS256": jwt.SigningMethodRS256,
	"ES256": jwt.SigningMethodES256,
}

// IsKnownAlgorithm reports whether alg can be used to sign assertions.
func IsKnownAlgorithm(alg string) bool {
	_, ok := knownSigningAlgorithms[alg]
	return ok
}

// RSASigner signs RS256 tokens with an RSA private key.
type RSASigner struct {
	key *rsa.PrivateKey
	kid string
}

func NewRSASigner(key *rsa.PrivateKey, kid string) *RSASigner {
	return &RSASigner{key: key, kid: kid}
}

func (s *RSASigner) Algorithm() string           { return jwt.SigningMethodRS256.Alg() }
func (s *RSASigner) KID() string                 { return s.kid }
func (s *RSASigner) PublicKey() *rsa.PublicKey   { return &s.key.PublicKey }
func (s *RSASigner) PrivateKey() *rsa.PrivateKey { return s.key }

func (s *RSASigner) Sign(_ context.Context, claims jwt.MapClaims) (string, error) {
	return signWith(jwt.SigningMethodRS256, s.kid, claims, s.key)
}

// ECSigner signs ES256 tokens with a P-256 private key.
type ECSigner struct {
	key *ecdsa.PrivateKey
	kid string
}

func NewECSigner(key *ecdsa.PrivateKey, kid string) *ECSigner {
	return &ECSigner{key: key, kid: kid}
}

func (s *ECSigner) Algorithm() string             { return jwt.SigningMethodES256.Alg() }
func (s *ECSigner) KID() string                   { return s.kid }
func (s *ECSigner) PublicKey() *ecdsa.PublicKey   { return &s.key.PublicKey }
func (s *ECSigner) PrivateKey() *ecdsa.PrivateKey { return s.key }

func (s *ECSigner) Sign(_ context.Context, claims jwt.MapClaims) (string, error) {
	return signWith(jwt.SigningMethodES256, s.kid, claims, s.key)
}

// HMACSigner signs HS256/HS384/HS512 tokens with a shared secret.
type HMACSigner struct {
	method jwt.SigningMethod
	secret []byte
	kid    string
}

func (s *HMACSigner) Algorithm() string { return s.method.Alg() }
func (s *HMACSigner) KID() string       { return s.kid }

func (s *HMACSigner) Sign(_ context.Context, claims jwt.MapClaims) (string, error) {
	return signWith(s.method, s.kid, claims, s.secret)
}

func signWith(method jwt.SigningMethod, kid string, claims jwt.MapClaims, key any) (string, error) {
	token := jwt.NewWithClaims(method, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	return token.SignedString(key)
}

// NewSigner builds a Signer for alg from key material. For HS* algorithms key
// is the shared secret ([]byte or string). For RS256 and ES256 key is either a
// parsed private key or its PEM encoding ([]byte or string).
func NewSigner(alg string, key any, kid string) (Signer, error) {
	method, ok := knownSigningAlgorithms[alg]
	if !ok {
		return nil, fmt.Errorf("unknown signing algorithm %q", alg)
	}
	if key == nil {
		return nil, errors.New("no signing key available")
	}
	switch method {
	case jwt.SigningMethodHS256, jwt.SigningMethodHS384, jwt.SigningMethodHS512:
		var secret []byte
		switch k := key.(type) {
		case []byte:
			secret = k
		case string:
			secret = []byte(k)
		default:
			return nil, fmt.Errorf("%s requires a shared secret, got %T", alg, key)
		}
		if len(secret) == 0 {
			return nil, errors.New("empty HMAC secret")
		}
		return &HMACSigner{method: method, secret: secret, kid: kid}, nil
	}

	priv, err := privateKeyFrom(key)
	if err != nil {
		return nil, err
	}
	switch k := priv.(type) {
	case *rsa.PrivateKey:
		if method != jwt.SigningMethodRS256 {
			return nil, fmt.Errorf("%s cannot be used with an RSA key", alg)
		}
		return NewRSASigner(k, kid), nil
	case *ecdsa.PrivateKey:
		if method != jwt.SigningMethodES256 {
			return nil, fmt.Errorf("%s cannot be used with an EC key", alg)
		}
		return NewECSigner(k, kid), nil
	default:
		return nil, fmt.Errorf("unsupported private key type %T", priv)
	}
}

func privateKeyFrom(key any) (any, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey, *ecdsa.PrivateKey:
		return k, nil
	case []byte:
		return ParsePrivateKeyPEM(k)
	case string:
		return ParsePrivateKeyPEM([]byte(k))
	default:
		return nil, fmt.Errorf("unsupported signing key type %T", key)
	}
}
