package authgin

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/PaulFidika/tokenkit/core"
	oidckit "github.com/PaulFidika/tokenkit/oidc"
)

const (
	ctxClaims  = "auth.claims"
	ctxSubject = "auth.subject"
	ctxIssuer  = "auth.issuer"
)

// RLAssertion is the rate-limit bucket charged once per presented assertion,
// keyed by client IP.
const RLAssertion = "auth_assertion"

// RateLimiter is satisfied by ratelimit/memory and ratelimit/redis.
type RateLimiter interface {
	AllowNamed(ctx context.Context, bucket, key string) (bool, error)
}

// Option configures the assertion middleware.
type Option func(*middleware)

type middleware struct {
	verifier *oidckit.Verifier
	cfg      core.AcceptConfig
	required bool
	rl       RateLimiter
	logger   logrus.FieldLogger
}

// WithRateLimiter throttles verification attempts per client IP.
func WithRateLimiter(rl RateLimiter) Option { return func(m *middleware) { m.rl = rl } }

func WithLogger(l logrus.FieldLogger) Option { return func(m *middleware) { m.logger = l } }

// RequireAssertion rejects requests that do not carry an assertion accepted
// by one of cfg.Issuers. Verified claims are stored on the gin context.
func RequireAssertion(v *oidckit.Verifier, cfg core.AcceptConfig, opts ...Option) gin.HandlerFunc {
	return newMiddleware(v, cfg, true, opts).handle
}

// OptionalAssertion verifies an assertion when one is present and lets
// requests without one through. An invalid assertion is still rejected.
func OptionalAssertion(v *oidckit.Verifier, cfg core.AcceptConfig, opts ...Option) gin.HandlerFunc {
	return newMiddleware(v, cfg, false, opts).handle
}

func newMiddleware(v *oidckit.Verifier, cfg core.AcceptConfig, required bool, opts []Option) *middleware {
	m := &middleware{verifier: v, cfg: cfg, required: required, logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *middleware) allow(c *gin.Context) bool {
	if m.rl == nil {
		return true
	}
	ok, err := m.rl.AllowNamed(c.Request.Context(), RLAssertion, c.ClientIP())
	if err != nil {
		// Fail open.
		m.logger.WithError(err).Warn("rate limiter unavailable")
		return true
	}
	return ok
}

func (m *middleware) handle(c *gin.Context) {
	raw := extractAssertion(c.Request, m.cfg.Header)
	if raw == "" {
		if m.required {
			unauthorized(c, "missing_token")
			return
		}
		c.Next()
		return
	}
	if !m.allow(c) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
		return
	}

	var lastErr error
	for _, acc := range m.cfg.Issuers {
		claims, err := m.verifier.Verify(c.Request.Context(), raw, oidckit.VerifyOptions{
			Audience:      acc.Audience,
			Issuer:        acc.Issuer,
			CertsLocation: acc.CertsLocation,
			ReturnErrors:  true,
			Leeway:        m.cfg.Leeway,
		})
		if err == nil {
			c.Set(ctxClaims, claims)
			c.Set(ctxSubject, claims.Subject())
			c.Set(ctxIssuer, claims.Issuer())
			c.Next()
			return
		}
		lastErr = err
	}
	if misconfigured(lastErr) {
		m.logger.WithError(lastErr).Warn("assertion certificates unavailable")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "verification_unavailable"})
		return
	}
	if errors.Is(lastErr, core.ErrExpired) {
		unauthorized(c, "token_expired")
		return
	}
	unauthorized(c, "invalid_token")
}

// misconfigured reports failures that describe the issuer's certificates
// rather than the presented token.
func misconfigured(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, core.ErrVerification) ||
		errors.Is(err, core.ErrCertFormat) ||
		errors.Is(err, core.ErrUnsupportedAlgorithm)
}

func extractAssertion(r *http.Request, header string) string {
	if header != "" {
		return strings.TrimSpace(r.Header.Get(header))
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func unauthorized(c *gin.Context, code string) {
	c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
}

// ClaimsFromGin returns the claims verified by the middleware.
func ClaimsFromGin(c *gin.Context) (oidckit.Claims, bool) {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(oidckit.Claims)
	return claims, ok
}
