package authgin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulFidika/tokenkit/core"
	oidckit "github.com/PaulFidika/tokenkit/oidc"
	memorylimiter "github.com/PaulFidika/tokenkit/ratelimit/memory"
	tktest "github.com/PaulFidika/tokenkit/testing"
)

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", mw, func(c *gin.Context) {
		caller, ok := CurrentCaller(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "caller": caller})
	})
	return r
}

func do(r http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func acceptFor(issuers ...*tktest.TestIssuer) core.AcceptConfig {
	cfg := core.AcceptConfig{}
	for _, ti := range issuers {
		cfg.Issuers = append(cfg.Issuers, core.IssuerAccept{
			Issuer:        ti.URL(),
			Audience:      ti.Audience(),
			CertsLocation: ti.CertsURL(),
		})
	}
	return cfg
}

func TestRequireAssertion(t *testing.T) {
	ti := tktest.NewTestIssuerWithAudience(tktest.RS256, "svc")
	t.Cleanup(ti.Close)
	r := newRouter(RequireAssertion(oidckit.NewVerifier(), acceptFor(ti)))

	w := do(r, "Authorization", "Bearer "+ti.CreateTokenWithClaims("user-1", map[string]any{"email": "u@example.com"}))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		OK     bool   `json:"ok"`
		Caller Caller `json:"caller"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, "user-1", body.Caller.Subject)
	assert.Equal(t, "u@example.com", body.Caller.Email)
	assert.Equal(t, []string{"svc"}, body.Caller.Audience)

	assert.Equal(t, http.StatusUnauthorized, do(r, "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Authorization", "Bearer garbage").Code)

	w = do(r, "Authorization", "Bearer "+ti.CreateExpiredToken("user-1"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token_expired")
}

func TestRequireAssertionTriesEachIssuer(t *testing.T) {
	a := tktest.NewTestIssuerWithAudience(tktest.RS256, "svc")
	b := tktest.NewTestIssuerWithAudience(tktest.ES256, "svc")
	t.Cleanup(a.Close)
	t.Cleanup(b.Close)
	r := newRouter(RequireAssertion(oidckit.NewVerifier(), acceptFor(a, b)))

	assert.Equal(t, http.StatusOK, do(r, "Authorization", "Bearer "+a.CreateToken("x")).Code)
	assert.Equal(t, http.StatusOK, do(r, "Authorization", "Bearer "+b.CreateToken("y")).Code)
}

func TestIAPHeader(t *testing.T) {
	ti := tktest.NewTestIssuerWithAudience(tktest.ES256, "/projects/1/apps/app")
	t.Cleanup(ti.Close)
	cfg := acceptFor(ti)
	cfg.Header = core.IAPHeader
	r := newRouter(RequireAssertion(oidckit.NewVerifier(), cfg))

	assert.Equal(t, http.StatusOK, do(r, core.IAPHeader, ti.CreateToken("x")).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Authorization", "Bearer "+ti.CreateToken("x")).Code)
}

func TestOptionalAssertion(t *testing.T) {
	ti := tktest.NewTestIssuerWithAudience(tktest.RS256, "svc")
	t.Cleanup(ti.Close)
	r := newRouter(OptionalAssertion(oidckit.NewVerifier(), acceptFor(ti)))

	w := do(r, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"none"`)

	assert.Equal(t, http.StatusUnauthorized, do(r, "Authorization", "Bearer garbage").Code)
}

func TestCertsUnavailable(t *testing.T) {
	ti := tktest.NewTestIssuerWithAudience(tktest.RS256, "svc")
	cfg := acceptFor(ti)
	token := ti.CreateToken("x")
	ti.Close()

	r := newRouter(RequireAssertion(oidckit.NewVerifier(), cfg))
	assert.Equal(t, http.StatusServiceUnavailable, do(r, "Authorization", "Bearer "+token).Code)
}

func TestBadIssuerCertsAreUnavailable(t *testing.T) {
	ti := tktest.NewTestIssuerWithAudience(tktest.RS256, "svc")
	t.Cleanup(ti.Close)
	token := ti.CreateToken("x")

	for name, body := range map[string]string{
		"missing alg":     `{"keys":[{"kty":"RSA","kid":"k1","n":"AQAB","e":"AQAB"}]}`,
		"unsupported alg": `{"keys":[{"kty":"oct","kid":"k1","alg":"HS256"}]}`,
	} {
		body := body
		t.Run(name, func(t *testing.T) {
			certs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
			}))
			defer certs.Close()

			cfg := acceptFor(ti)
			cfg.Issuers[0].CertsLocation = certs.URL
			r := newRouter(RequireAssertion(oidckit.NewVerifier(), cfg))
			assert.Equal(t, http.StatusServiceUnavailable, do(r, "Authorization", "Bearer "+token).Code)
		})
	}
}

func TestRateLimitedAssertions(t *testing.T) {
	ti := tktest.NewTestIssuerWithAudience(tktest.RS256, "svc")
	t.Cleanup(ti.Close)
	rl := memorylimiter.New(map[string]memorylimiter.Limit{RLAssertion: {Limit: 1, Window: time.Minute}})
	r := newRouter(RequireAssertion(oidckit.NewVerifier(), acceptFor(ti), WithRateLimiter(rl)))

	assert.Equal(t, http.StatusOK, do(r, "Authorization", "Bearer "+ti.CreateToken("x")).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "Authorization", "Bearer "+ti.CreateToken("x")).Code)
}
