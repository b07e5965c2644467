// Package oidckit verifies signed identity assertions (ID tokens and IAP
// headers) against published RS256 or ES256 certificate sets.
package oidckit

import (
	"context"
	"crypto/rsa"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	cachekit "github.com/PaulFidika/tokenkit/cache"
	"github.com/PaulFidika/tokenkit/core"
	jwtkit "github.com/PaulFidika/tokenkit/jwt"
)

// VerifyOptions selects the certificates and policy for one verification.
type VerifyOptions struct {
	// Audience, when set, must match the aud claim if the token carries one.
	Audience string
	// Issuer overrides the default issuers for the certificate algorithm.
	Issuer string
	// CertsLocation is a URL or local path; empty selects DefaultCertsURL.
	CertsLocation string
	// ReturnErrors returns the typed *core.VerificationError describing a
	// rejected token instead of the opaque core.ErrVerificationFailed.
	ReturnErrors bool
	// Leeway tolerates clock skew on exp, nbf and iat.
	Leeway time.Duration
}

// Verifier checks tokens against remote certificate sets.
type Verifier struct {
	fetcher CertFetcher
	cache   *cachekit.Cache
	logger  logrus.FieldLogger
	now     func() time.Time
}

// VerifierOpt configures a Verifier.
type VerifierOpt func(*Verifier)

// WithCertFetcher replaces the HTTP certificate fetcher.
func WithCertFetcher(f CertFetcher) VerifierOpt {
	return func(v *Verifier) { v.fetcher = f }
}

// WithHTTPClient sets the client used by the default fetcher.
func WithHTTPClient(c core.HTTPClient) VerifierOpt {
	return func(v *Verifier) { v.fetcher = HTTPCertFetcher{Client: c} }
}

// WithCache caches fetched certificate sets by location.
func WithCache(c *cachekit.Cache) VerifierOpt {
	return func(v *Verifier) { v.cache = c }
}

func WithLogger(l logrus.FieldLogger) VerifierOpt {
	return func(v *Verifier) { v.logger = l }
}

func WithClock(now func() time.Time) VerifierOpt {
	return func(v *Verifier) { v.now = now }
}

func NewVerifier(opts ...VerifierOpt) *Verifier {
	v := &Verifier{
		fetcher: HTTPCertFetcher{},
		logger:  logrus.StandardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify validates token and returns its claims.
//
// Failures to obtain usable certificates (fetch errors, a malformed or
// mixed-algorithm set, an unsupported algorithm) are always returned as is.
// A rejected token yields a *core.VerificationError when opts.ReturnErrors is
// set, otherwise core.ErrVerificationFailed.
func (v *Verifier) Verify(ctx context.Context, token string, opts VerifyOptions) (Claims, error) {
	location := opts.CertsLocation
	if location == "" {
		location = DefaultCertsURL
	}
	certs, err := v.certs(ctx, location)
	if err != nil {
		return nil, err
	}
	alg, err := determineAlg(certs)
	if err != nil {
		return nil, err
	}

	var claims Claims
	switch alg {
	case AlgRS256:
		claims, err = v.verifyRS256(token, certs, opts)
	case AlgES256:
		claims, err = v.verifyES256(token, certs, opts)
	default:
		return nil, core.Verificationf(core.ErrUnsupportedAlgorithm, "unrecognized alg %q in certs, expected ES256 or RS256", alg)
	}
	if err != nil {
		v.logger.WithError(err).WithField("alg", alg).Debug("token rejected")
		if opts.ReturnErrors {
			return nil, err
		}
		return nil, core.ErrVerificationFailed
	}
	return claims, nil
}

func (v *Verifier) certs(ctx context.Context, location string) ([]jwtkit.Certificate, error) {
	if certs, ok := v.cache.LookupCerts(ctx, location); ok {
		return certs, nil
	}
	certs, err := v.fetcher.FetchCerts(ctx, location)
	if err != nil {
		return nil, err
	}
	v.cache.StoreCerts(ctx, location, certs)
	return certs, nil
}

func (v *Verifier) verifyRS256(token string, certs []jwtkit.Certificate, opts VerifyOptions) (Claims, error) {
	keys := make(map[string]*rsa.PublicKey, len(certs))
	for _, c := range certs {
		if c.Kid == "" {
			return nil, core.Verificationf(core.ErrCertFormat, `certs expects "kid" to be set`)
		}
		pub, err := c.RSAPublicKey()
		if err != nil {
			return nil, core.Verificationf(core.ErrCertFormat, "%v", err)
		}
		keys[c.Kid] = pub
	}

	mc := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, mc, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, core.Verificationf(core.ErrMalformed, `"kid" empty, unable to lookup correct key`)
		}
		key, ok := keys[kid]
		if !ok {
			return nil, core.Verificationf(core.ErrSignatureInvalid, "no certificate for kid %q", kid)
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{AlgRS256}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(opts.Leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, classifyJWTError(err)
	}
	return checkPolicy(Claims(mc), AlgRS256, opts)
}

// classifyJWTError maps a golang-jwt parse failure to a verification kind.
func classifyJWTError(err error) error {
	var ve *core.VerificationError
	if errors.As(err, &ve) {
		return ve
	}
	kind := core.ErrSignatureInvalid
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		kind = core.ErrMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		kind = core.ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		kind = core.ErrNotYetValid
	}
	return &core.VerificationError{Kind: kind, Err: err}
}

func checkPolicy(claims Claims, alg string, opts VerifyOptions) (Claims, error) {
	if !claims.hasAudience(opts.Audience) {
		return nil, core.Verificationf(core.ErrAudienceMismatch, "audience does not match")
	}
	issuers := defaultIssuers(alg)
	if opts.Issuer != "" {
		issuers = []string{opts.Issuer}
	}
	iss := claims.Issuer()
	for _, want := range issuers {
		if iss == want {
			return claims, nil
		}
	}
	return nil, core.Verificationf(core.ErrIssuerMismatch, "issuer does not match")
}
