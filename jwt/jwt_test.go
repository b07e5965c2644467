package jwtkit

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSignerRS256FromPEM(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	s, err := NewSigner("RS256", EncodeRSAPrivateKeyPEM(key), "kid-1")
	require.NoError(t, err)
	assert.Equal(t, "RS256", s.Algorithm())
	assert.Equal(t, "kid-1", s.KID())

	raw, err := s.Sign(context.Background(), jwt.MapClaims{"iss": "me"})
	require.NoError(t, err)

	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return &key.PublicKey, nil })
	require.NoError(t, err)
	assert.Equal(t, "kid-1", tok.Header["kid"])
}

func TestNewSignerES256FromPKCS8(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	s, err := NewSigner("ES256", string(pemBytes), "")
	require.NoError(t, err)
	raw, err := s.Sign(context.Background(), jwt.MapClaims{"sub": "x"})
	require.NoError(t, err)

	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return &key.PublicKey, nil })
	require.NoError(t, err)
	_, hasKid := tok.Header["kid"]
	assert.False(t, hasKid, "kid header must be omitted when no key id is configured")
}

func TestNewSignerHMAC(t *testing.T) {
	s, err := NewSigner("HS384", "shared-secret", "")
	require.NoError(t, err)
	raw, err := s.Sign(context.Background(), jwt.MapClaims{"a": 1})
	require.NoError(t, err)
	_, err = jwt.Parse(raw, func(*jwt.Token) (any, error) { return []byte("shared-secret"), nil })
	require.NoError(t, err)
}

func TestNewSignerRejectsMismatches(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	_, err = NewSigner("PS256", key, "")
	assert.Error(t, err)
	_, err = NewSigner("ES256", key, "")
	assert.Error(t, err)
	_, err = NewSigner("RS256", nil, "")
	assert.Error(t, err)
	_, err = NewSigner("HS256", key, "")
	assert.Error(t, err)
	assert.False(t, IsKnownAlgorithm("none"))
	assert.True(t, IsKnownAlgorithm("RS256"))
}

func TestCertificateRoundTrip(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	cert := RSAPublicToCert(&rsaKey.PublicKey, "k1", "RS256")
	assert.Equal(t, "AQAB", cert.E)
	pub, err := cert.RSAPublicKey()
	require.NoError(t, err)
	assert.True(t, rsaKey.PublicKey.Equal(pub))

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	ecCert := ECPublicToCert(&ecKey.PublicKey, "e1", "ES256")
	assert.Equal(t, "P-256", ecCert.Crv)
	ecPub, err := ecCert.ECPublicKey()
	require.NoError(t, err)
	assert.True(t, ecKey.PublicKey.Equal(ecPub))
}

func TestCertificateMissingModulus(t *testing.T) {
	_, err := Certificate{Kid: "k1", E: "AQAB"}.RSAPublicKey()
	assert.Error(t, err)
}

func TestServeCertsConditionalGet(t *testing.T) {
	cs := CertSet{Keys: []Certificate{{Kid: "k1", Alg: "RS256", N: "AQAB", E: "AQAB"}}}

	rec := httptest.NewRecorder()
	ServeCerts(rec, httptest.NewRequest(http.MethodGet, "/certs", nil), cs)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/certs", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	ServeCerts(rec, req, cs)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}
