package grantkit

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulFidika/tokenkit/core"
)

const tokenURL = "https://oauth.example.com/token"

func formOf(t *testing.T, req *http.Request) url.Values {
	t.Helper()
	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	vals, err := url.ParseQuery(string(body))
	require.NoError(t, err)
	return vals
}

func TestResolveGrantTypePrecedence(t *testing.T) {
	cfg := Config{RefreshToken: "r", Username: "u", Password: "p"}
	gt, err := cfg.ResolveGrantType()
	require.NoError(t, err)
	assert.Equal(t, GrantRefreshToken, gt)

	cfg.Code = "c"
	gt, err = cfg.ResolveGrantType()
	require.NoError(t, err)
	assert.Equal(t, GrantAuthorizationCode, gt)

	gt, err = Config{Username: "u", Password: "p", Issuer: "i", SigningKey: "k"}.ResolveGrantType()
	require.NoError(t, err)
	assert.Equal(t, GrantPassword, gt)

	gt, err = Config{Issuer: "i", SigningKey: "k"}.ResolveGrantType()
	require.NoError(t, err)
	assert.Equal(t, GrantJWTBearer, gt)

	_, err = Config{Username: "u"}.ResolveGrantType()
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestResolveGrantTypeOverride(t *testing.T) {
	gt, err := Config{RefreshToken: "r", GrantType: GrantPassword}.ResolveGrantType()
	require.NoError(t, err)
	assert.Equal(t, GrantPassword, gt)

	gt, err = Config{GrantType: "urn:example:grant"}.ResolveGrantType()
	require.NoError(t, err)
	assert.Equal(t, "urn:example:grant", gt)

	_, err = Config{GrantType: "not-a-uri"}.ResolveGrantType()
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestBuildRefreshTokenRequest(t *testing.T) {
	cfg := Config{TokenURL: tokenURL, RefreshToken: "r1", ClientID: "id", ClientSecret: "secret"}
	req, err := Build(context.Background(), cfg, time.Now())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, tokenURL, req.URL.String())
	assert.Equal(t, "no-store", req.Header.Get("Cache-Control"))
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))

	form := formOf(t, req)
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "r1", form.Get("refresh_token"))
	assert.Equal(t, "id", form.Get("client_id"))
	assert.Equal(t, "secret", form.Get("client_secret"))
}

func TestBuildNeverSendsPartialClientCredentials(t *testing.T) {
	cfg := Config{TokenURL: tokenURL, Username: "u", Password: "p", ClientID: "id"}
	req, err := Build(context.Background(), cfg, time.Now())
	require.NoError(t, err)

	form := formOf(t, req)
	assert.Equal(t, "password", form.Get("grant_type"))
	assert.False(t, form.Has("client_id"))
	assert.False(t, form.Has("client_secret"))
}

func TestBuildAuthorizationCode(t *testing.T) {
	cfg := Config{TokenURL: tokenURL, Code: "abc", RedirectURI: "https://app.example.com/cb"}
	req, err := Build(context.Background(), cfg, time.Now())
	require.NoError(t, err)
	form := formOf(t, req)
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "abc", form.Get("code"))
	assert.Equal(t, "https://app.example.com/cb", form.Get("redirect_uri"))
}

func TestBuildRequiresTokenURL(t *testing.T) {
	_, err := Build(context.Background(), Config{RefreshToken: "r"}, time.Now())
	var ce *core.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "token_url", ce.Field)
}

func TestBuildExtensionGrant(t *testing.T) {
	cfg := Config{
		TokenURL:        tokenURL,
		GrantType:       "urn:ietf:params:oauth:grant-type:token-exchange",
		ExtensionParams: map[string]string{"subject_token": "st", "audience": "svc"},
	}
	req, err := Build(context.Background(), cfg, time.Now())
	require.NoError(t, err)
	form := formOf(t, req)
	assert.Equal(t, "urn:ietf:params:oauth:grant-type:token-exchange", form.Get("grant_type"))
	assert.Equal(t, "st", form.Get("subject_token"))
	assert.Equal(t, "svc", form.Get("audience"))

	cfg.RedirectURI = "https://app.example.com/cb"
	_, err = Build(context.Background(), cfg, time.Now())
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestValidateRejectsBadFields(t *testing.T) {
	assert.Error(t, Config{RedirectURI: "/relative"}.Validate())
	assert.NoError(t, Config{RedirectURI: "postmessage"}.Validate())
	assert.Error(t, Config{Scope: []string{"a b"}}.Validate())
	assert.Error(t, Config{SigningAlgorithm: "none"}.Validate())
	assert.Equal(t, []string{"a", "b"}, ParseScope(" a  b "))
}

func TestJWTBearerMissingAudience(t *testing.T) {
	cfg := Config{
		TokenURL:         tokenURL,
		Issuer:           "svc@example.iam",
		SigningKey:       "secret",
		SigningAlgorithm: "HS256",
	}
	_, err := Build(context.Background(), cfg, time.Now())
	require.ErrorIs(t, err, core.ErrConfiguration)
	var ce *core.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "aud", ce.Field)
	assert.Contains(t, err.Error(), "aud")
}

func TestJWTBearerAssertion(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)

	cfg := Config{
		TokenURL:         tokenURL,
		Issuer:           "svc@example.iam",
		Audience:         tokenURL,
		Subject:          "user@example.com",
		Scope:            []string{"a", "b"},
		SigningKey:       key,
		SigningKeyID:     "kid-9",
		SigningAlgorithm: "RS256",
		AdditionalClaims: map[string]any{"target_audience": "svc", "aud": "override"},
	}
	req, err := Build(context.Background(), cfg, now)
	require.NoError(t, err)
	form := formOf(t, req)
	assert.Equal(t, GrantJWTBearer, form.Get("grant_type"))
	assert.Len(t, form, 2, "jwt-bearer sends only grant_type and assertion")

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(form.Get("assertion"), claims, func(*jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	require.NoError(t, err)
	assert.Equal(t, "kid-9", tok.Header["kid"])
	assert.Equal(t, "svc@example.iam", claims["iss"])
	assert.Equal(t, "override", claims["aud"], "additional claims are merged last")
	assert.Equal(t, "user@example.com", claims["sub"])
	assert.Equal(t, "a b", claims["scope"])
	assert.Equal(t, "svc", claims["target_audience"])
	assert.EqualValues(t, now.Add(DefaultExpiry).Unix(), claims["exp"])
	assert.EqualValues(t, now.Add(-DefaultSkew).Unix(), claims["iat"])
}

func TestAssertionRequiresSigningAlgorithm(t *testing.T) {
	_, err := Assertion(context.Background(), Config{Issuer: "i", Audience: "a", SigningKey: "k"}, time.Now())
	var ce *core.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "signing_algorithm", ce.Field)
}

func TestBuildRevokeRequest(t *testing.T) {
	req, err := BuildRevokeRequest(context.Background(), "", "tok")
	require.NoError(t, err)
	assert.Equal(t, DefaultRevokeURL, req.URL.String())
	assert.Equal(t, "tok", formOf(t, req).Get("token"))

	_, err = BuildRevokeRequest(context.Background(), "", "")
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
