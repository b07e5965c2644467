package credkit

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"strings"

	"github.com/PaulFidika/tokenkit/core"
	grantkit "github.com/PaulFidika/tokenkit/grant"
	jwtkit "github.com/PaulFidika/tokenkit/jwt"
	tokenkit "github.com/PaulFidika/tokenkit/token"
)

// ServiceAccountKey is the service_account credentials file.
type ServiceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id,omitempty"`
	PrivateKeyID string `json:"private_key_id,omitempty"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id,omitempty"`
	TokenURI     string `json:"token_uri,omitempty"`
	QuotaProject string `json:"quota_project_id,omitempty"`
}

// ServiceAccount obtains tokens with a self-signed jwt-bearer assertion.
type ServiceAccount struct {
	fetcher
	email     string
	projectID string
	keyID     string
	key       *rsa.PrivateKey
}

// NewServiceAccount validates key, parses its private key and returns a
// source for it.
func NewServiceAccount(key ServiceAccountKey, opts ...Option) (*ServiceAccount, error) {
	if key.ClientEmail == "" {
		return nil, core.Configf("client_email", "json key is missing the client_email field")
	}
	if key.PrivateKey == "" {
		return nil, core.Configf("private_key", "json key is missing the private_key field")
	}
	parsed, err := jwtkit.ParsePrivateKeyPEM([]byte(key.PrivateKey))
	if err != nil {
		return nil, core.Configf("private_key", "%v", err)
	}
	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, core.Configf("private_key", "service account keys must be RSA")
	}

	o := newOptions(opts)
	if o.tokenURL == "" {
		o.tokenURL = key.TokenURI
	}
	if o.tokenURL == "" {
		o.tokenURL = grantkit.DefaultTokenURL
	}
	sa := &ServiceAccount{
		email:     key.ClientEmail,
		projectID: key.ProjectID,
		keyID:     key.PrivateKeyID,
		key:       rsaKey,
	}
	sa.fetcher = fetcher{
		cacheKey: key.ClientEmail + ":" + strings.Join(o.scopes, " ") + ":" + o.subject,
		state:    tokenkit.NewState(""),
		opts:     o,
	}
	sa.config = sa.grantConfig
	return sa, nil
}

func (sa *ServiceAccount) grantConfig() grantkit.Config {
	return grantkit.Config{
		TokenURL:         sa.opts.tokenURL,
		Issuer:           sa.email,
		Audience:         sa.opts.tokenURL,
		Subject:          sa.opts.subject,
		Scope:            sa.opts.scopes,
		SigningKey:       sa.key,
		SigningKeyID:     sa.keyID,
		SigningAlgorithm: "RS256",
	}
}

func (sa *ServiceAccount) FetchAuthToken(ctx context.Context) (tokenkit.Record, error) {
	return sa.fetch(ctx)
}

// Refresh fetches a new token regardless of the current one's expiry.
func (sa *ServiceAccount) Refresh(ctx context.Context) (tokenkit.Record, error) {
	return sa.refresh(ctx, false)
}

func (sa *ServiceAccount) RequestMetadata(ctx context.Context) (map[string]string, error) {
	rec, err := sa.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return bearerMetadata(rec), nil
}

func (sa *ServiceAccount) CacheKey() string   { return sa.cacheKey }
func (sa *ServiceAccount) ClientEmail() string { return sa.email }
func (sa *ServiceAccount) ProjectID() string   { return sa.projectID }

// SignBlob signs data locally with RSASSA-PKCS1-v1_5 over SHA-256.
func (sa *ServiceAccount) SignBlob(_ context.Context, data []byte) ([]byte, error) {
	sum := sha256.Sum256(data)
	return rsa.SignPKCS1v15(rand.Reader, sa.key, crypto.SHA256, sum[:])
}
