package credkit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/PaulFidika/tokenkit/core"
	grantkit "github.com/PaulFidika/tokenkit/grant"
	tokenkit "github.com/PaulFidika/tokenkit/token"
)

// QuotaProjectHeader names the project billed for API usage.
const QuotaProjectHeader = "x-goog-user-project"

// UserRefreshKey is the authorized_user credentials file written by
// `gcloud auth application-default login`.
type UserRefreshKey struct {
	Type         string `json:"type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	QuotaProject string `json:"quota_project,omitempty"`
}

// UserRefresh exchanges a long-lived user refresh token for access tokens.
type UserRefresh struct {
	fetcher
	clientID     string
	clientSecret string
	quotaProject string
}

// NewUserRefresh validates key and returns a source for it.
func NewUserRefresh(key UserRefreshKey, opts ...Option) (*UserRefresh, error) {
	switch {
	case key.ClientID == "":
		return nil, core.Configf("client_id", "json key is missing the client_id field")
	case key.ClientSecret == "":
		return nil, core.Configf("client_secret", "json key is missing the client_secret field")
	case key.RefreshToken == "":
		return nil, core.Configf("refresh_token", "json key is missing the refresh_token field")
	}
	o := newOptions(opts)
	if o.tokenURL == "" {
		o.tokenURL = grantkit.DefaultTokenURL
	}
	u := &UserRefresh{
		clientID:     key.ClientID,
		clientSecret: key.ClientSecret,
		quotaProject: key.QuotaProject,
	}
	u.fetcher = fetcher{
		cacheKey: userCacheKey(key, o.scopes),
		state:    tokenkit.NewState(key.RefreshToken),
		opts:     o,
	}
	u.config = u.grantConfig
	return u, nil
}

// userCacheKey identifies the user as well as the client: many users share
// one OAuth client, so the key carries a digest of the refresh token issued
// to this user.
func userCacheKey(key UserRefreshKey, scopes []string) string {
	sum := sha256.Sum256([]byte(key.RefreshToken))
	return key.ClientID + ":" + hex.EncodeToString(sum[:])[:16] + ":" + strings.Join(scopes, " ")
}

// grantConfig reads the refresh token from state so a rotated token is used
// on the next fetch.
func (u *UserRefresh) grantConfig() grantkit.Config {
	return grantkit.Config{
		TokenURL:     u.opts.tokenURL,
		ClientID:     u.clientID,
		ClientSecret: u.clientSecret,
		RefreshToken: u.state.RefreshToken(),
		Scope:        u.opts.scopes,
	}
}

func (u *UserRefresh) FetchAuthToken(ctx context.Context) (tokenkit.Record, error) {
	return u.fetch(ctx)
}

// Refresh fetches a new token regardless of the current one's expiry.
func (u *UserRefresh) Refresh(ctx context.Context) (tokenkit.Record, error) {
	return u.refresh(ctx, false)
}

// RequestMetadata returns the bearer header, plus the quota project header
// when one is configured.
func (u *UserRefresh) RequestMetadata(ctx context.Context) (map[string]string, error) {
	rec, err := u.fetch(ctx)
	if err != nil {
		return nil, err
	}
	md := bearerMetadata(rec)
	if u.quotaProject != "" {
		md[QuotaProjectHeader] = u.quotaProject
	}
	return md, nil
}

func (u *UserRefresh) CacheKey() string { return u.cacheKey }

// QuotaProject returns the configured quota project, if any.
func (u *UserRefresh) QuotaProject() string { return u.quotaProject }

// ClientEmail returns the OAuth client id, which is the identity the IAM API
// signs as for user credentials.
func (u *UserRefresh) ClientEmail() string { return u.clientID }

// LastReceivedToken returns the token held in memory, if any.
func (u *UserRefresh) LastReceivedToken() (tokenkit.Record, bool) {
	return u.state.LastReceivedToken()
}

// SignBlob signs data through the IAM Credentials API using a freshly
// fetched access token.
func (u *UserRefresh) SignBlob(ctx context.Context, data []byte) ([]byte, error) {
	rec, err := u.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return signBlobWithIAM(ctx, u.opts.client, u.opts.iamBaseURL, u.ClientEmail(), rec.AccessToken, data)
}
