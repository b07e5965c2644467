// Package testing provides a mock issuer for tests of code built on tokenkit.
// It serves a certificate set and an OpenID discovery document, signs tokens
// that validate against those certificates, and answers token requests.
//
// Example usage:
//
//	issuer := testing.NewTestIssuer(testing.RS256)
//	defer issuer.Close()
//
//	claims, err := oidckit.NewVerifier().Verify(ctx, issuer.CreateToken("user-123"), oidckit.VerifyOptions{
//		Audience:      issuer.Audience(),
//		Issuer:        issuer.URL(),
//		CertsLocation: issuer.CertsURL(),
//	})
package testing

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	jwtkit "github.com/PaulFidika/tokenkit/jwt"
)

// Algorithm selects the issuer's key type.
type Algorithm string

const (
	RS256 Algorithm = "RS256"
	ES256 Algorithm = "ES256"
)

// TestIssuer runs an HTTP server exposing:
//
//	/certs - the certificate set
//	/.well-known/openid-configuration - discovery document
//	/token - a token endpoint returning the configured reply
type TestIssuer struct {
	server   *httptest.Server
	signer   jwtkit.Signer
	cert     jwtkit.Certificate
	audience string

	mu        sync.Mutex
	tokenBody string
	status    int
	forms     []map[string]string
	hits      atomic.Int32
}

// NewTestIssuer creates an issuer with a fresh key and a random key id.
func NewTestIssuer(alg Algorithm) *TestIssuer {
	return NewTestIssuerWithAudience(alg, "test-app")
}

// NewTestIssuerWithAudience creates an issuer whose tokens carry audience.
func NewTestIssuerWithAudience(alg Algorithm, audience string) *TestIssuer {
	kid := uuid.NewString()
	ti := &TestIssuer{
		audience:  audience,
		status:    http.StatusOK,
		tokenBody: `{"access_token":"test-access-token","expires_in":3600,"token_type":"Bearer"}`,
	}
	switch alg {
	case ES256:
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			panic("failed to create EC key: " + err.Error())
		}
		s := jwtkit.NewECSigner(key, kid)
		ti.signer = s
		ti.cert = jwtkit.ECPublicToCert(s.PublicKey(), kid, string(ES256))
	default:
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic("failed to create RSA key: " + err.Error())
		}
		s := jwtkit.NewRSASigner(key, kid)
		ti.signer = s
		ti.cert = jwtkit.RSAPublicToCert(s.PublicKey(), kid, string(RS256))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/certs", ti.handleCerts)
	mux.HandleFunc("/.well-known/openid-configuration", ti.handleDiscovery)
	mux.HandleFunc("/token", ti.handleToken)
	ti.server = httptest.NewServer(mux)
	return ti
}

// URL returns the base URL, which is also the iss of minted tokens.
func (ti *TestIssuer) URL() string { return ti.server.URL }

func (ti *TestIssuer) CertsURL() string { return ti.server.URL + "/certs" }
func (ti *TestIssuer) TokenURL() string { return ti.server.URL + "/token" }
func (ti *TestIssuer) Audience() string { return ti.audience }

// Certificate returns the published certificate.
func (ti *TestIssuer) Certificate() jwtkit.Certificate { return ti.cert }

// Client returns an HTTP client for the server.
func (ti *TestIssuer) Client() *http.Client { return ti.server.Client() }

func (ti *TestIssuer) Close() {
	if ti.server != nil {
		ti.server.Close()
	}
}

// SetTokenResponse changes the status and JSON body returned by /token.
func (ti *TestIssuer) SetTokenResponse(status int, body string) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.status = status
	ti.tokenBody = body
}

// TokenRequests returns how many requests /token has served.
func (ti *TestIssuer) TokenRequests() int { return int(ti.hits.Load()) }

// TokenForm returns the form fields of the i-th token request.
func (ti *TestIssuer) TokenForm(i int) map[string]string {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	if i < 0 || i >= len(ti.forms) {
		return nil
	}
	return ti.forms[i]
}

func (ti *TestIssuer) handleCerts(w http.ResponseWriter, r *http.Request) {
	jwtkit.ServeCerts(w, r, jwtkit.CertSet{Keys: []jwtkit.Certificate{ti.cert}})
}

func (ti *TestIssuer) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"issuer":         ti.URL(),
		"token_endpoint": ti.TokenURL(),
		"jwks_uri":       ti.CertsURL(),
	})
}

func (ti *TestIssuer) handleToken(w http.ResponseWriter, r *http.Request) {
	ti.hits.Add(1)
	_ = r.ParseForm()
	form := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}
	ti.mu.Lock()
	ti.forms = append(ti.forms, form)
	status, body := ti.status, ti.tokenBody
	ti.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// CreateToken mints a token for subject with iss, aud, exp (+1h) and iat.
func (ti *TestIssuer) CreateToken(subject string) string {
	return ti.CreateTokenWithClaims(subject, nil)
}

// CreateTokenWithClaims mints a token; extra claims override the defaults
// and a nil value removes the claim.
func (ti *TestIssuer) CreateTokenWithClaims(subject string, extraClaims map[string]any) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": ti.URL(),
		"aud": ti.audience,
		"exp": now.Add(time.Hour).Unix(),
		"iat": now.Unix(),
	}
	for k, v := range extraClaims {
		if v == nil {
			delete(claims, k)
			continue
		}
		claims[k] = v
	}
	token, err := ti.signer.Sign(context.Background(), claims)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return token
}

// CreateExpiredToken mints a token that expired an hour ago.
func (ti *TestIssuer) CreateExpiredToken(subject string) string {
	return ti.CreateTokenWithClaims(subject, map[string]any{
		"exp": time.Now().Add(-time.Hour).Unix(),
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
	})
}
