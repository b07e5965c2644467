// Package credkit provides credential sources that fetch, cache and refresh
// OAuth2 access tokens and expose them as request metadata.
package credkit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	cachekit "github.com/PaulFidika/tokenkit/cache"
	"github.com/PaulFidika/tokenkit/core"
	grantkit "github.com/PaulFidika/tokenkit/grant"
	tokenkit "github.com/PaulFidika/tokenkit/token"
)

// Source fetches access tokens for outbound requests.
type Source interface {
	// FetchAuthToken returns a token that is not expired, fetching a new one
	// when neither the in-memory state nor the cache holds one.
	FetchAuthToken(ctx context.Context) (tokenkit.Record, error)
	// RequestMetadata returns the headers to attach to an outbound request.
	RequestMetadata(ctx context.Context) (map[string]string, error)
	// CacheKey identifies the credential in a shared cache.
	CacheKey() string
}

// Signer is implemented by sources able to sign arbitrary bytes.
type Signer interface {
	SignBlob(ctx context.Context, data []byte) ([]byte, error)
	ClientEmail() string
}

// AuthorizationHeader is the metadata key carrying the bearer token.
const AuthorizationHeader = "Authorization"

// Option configures a credential source.
type Option func(*options)

type options struct {
	client     core.HTTPClient
	cache      *cachekit.Cache
	scopes     []string
	subject    string
	logger     logrus.FieldLogger
	tokenURL   string
	iamBaseURL string
	now        func() time.Time
}

func newOptions(opts []Option) options {
	o := options{
		logger:     logrus.StandardLogger(),
		now:        time.Now,
		iamBaseURL: DefaultIAMBaseURL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.client = core.DefaultHTTPClient(o.client)
	return o
}

// WithHTTPClient sets the transport used for token and signing requests.
func WithHTTPClient(c core.HTTPClient) Option { return func(o *options) { o.client = c } }

// WithCache shares fetched tokens through c.
func WithCache(c *cachekit.Cache) Option { return func(o *options) { o.cache = c } }

// WithScopes sets the requested scopes.
func WithScopes(scopes ...string) Option { return func(o *options) { o.scopes = scopes } }

// WithSubject sets the user to impersonate (service accounts only).
func WithSubject(sub string) Option { return func(o *options) { o.subject = sub } }

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(o *options) { o.logger = l } }

// WithTokenURL overrides the token endpoint.
func WithTokenURL(u string) Option { return func(o *options) { o.tokenURL = u } }

// WithIAMBaseURL overrides the IAM Credentials API root used by SignBlob.
func WithIAMBaseURL(u string) Option { return func(o *options) { o.iamBaseURL = u } }

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// fetches is shared by every source in the process so that two sources for
// the same credential and token endpoint never fetch concurrently.
var fetches singleflight.Group

// fetcher implements the state, cache and network pipeline shared by the
// refreshing sources.
type fetcher struct {
	cacheKey string
	config   func() grantkit.Config
	state    *tokenkit.State
	opts     options
}

func (f *fetcher) fetch(ctx context.Context) (tokenkit.Record, error) {
	now := f.opts.now()
	if f.state.AccessToken() != "" && !f.state.IsExpired(now) {
		return f.state.Snapshot(), nil
	}
	if rec, ok := f.cached(ctx, now); ok {
		f.state.Update(rec, now)
		return rec, nil
	}
	return f.refresh(ctx, true)
}

// refresh performs a network fetch, collapsing concurrent calls for the same
// cache key. With checkCache set, a token stored by another caller while
// this one was waiting is used instead.
//
// The shared fetch is detached from any one caller's cancellation; each
// caller stops waiting when its own ctx is done.
func (f *fetcher) refresh(ctx context.Context, checkCache bool) (tokenkit.Record, error) {
	shared := context.WithoutCancel(ctx)
	ch := fetches.DoChan(f.flightKey(), func() (any, error) {
		if checkCache {
			if rec, ok := f.cached(shared, f.opts.now()); ok {
				f.opts.logger.WithField("cache_key", f.cacheKey).Debug("token cached while waiting")
				return rec, nil
			}
		}
		return f.fetchRemote(shared)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return tokenkit.Record{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return tokenkit.Record{}, res.Err
	}
	rec := res.Val.(tokenkit.Record)
	f.state.Update(rec, f.opts.now())
	if res.Shared {
		f.opts.logger.WithField("cache_key", f.cacheKey).Debug("joined in-flight token fetch")
	}
	return rec, nil
}

func (f *fetcher) flightKey() string {
	key := f.cacheKey
	if f.opts.cache != nil {
		if k := f.opts.cache.Key(f.cacheKey); k != "" {
			key = k
		}
	}
	return f.opts.tokenURL + " " + key
}

func (f *fetcher) cached(ctx context.Context, now time.Time) (tokenkit.Record, bool) {
	rec, ok := f.opts.cache.LookupToken(ctx, f.cacheKey)
	if !ok || rec.AccessToken == "" || rec.IsExpired(now) {
		return tokenkit.Record{}, false
	}
	f.opts.logger.WithField("cache_key", f.cacheKey).Debug("token cache hit")
	return rec, true
}

func (f *fetcher) fetchRemote(ctx context.Context) (tokenkit.Record, error) {
	cfg := f.config()
	now := f.opts.now()
	req, err := grantkit.Build(ctx, cfg, now)
	if err != nil {
		return tokenkit.Record{}, err
	}
	gt, _ := cfg.ResolveGrantType()
	f.opts.logger.WithFields(logrus.Fields{"cache_key": f.cacheKey, "grant_type": gt}).Debug("fetching token")

	resp, err := f.opts.client.Do(req)
	if err != nil {
		return tokenkit.Record{}, err
	}
	defer resp.Body.Close()
	rec, err := tokenkit.ParseResponse(resp)
	if err != nil {
		return tokenkit.Record{}, err
	}

	rec = resolveExpiry(rec, now)
	f.opts.cache.StoreToken(ctx, f.cacheKey, cacheable(rec))
	return rec, nil
}

// resolveExpiry pins a relative expires_in to an absolute expires_at so the
// record means the same thing to every goroutine and cache reader.
func resolveExpiry(rec tokenkit.Record, now time.Time) tokenkit.Record {
	if rec.IssuedAt == nil {
		rec.IssuedAt = tokenkit.Int64(now.Unix())
	}
	if rec.ExpiresAt == nil && rec.ExpiresIn != nil {
		rec.ExpiresAt = tokenkit.Int64(*rec.IssuedAt + *rec.ExpiresIn)
	}
	return rec
}

// cacheable drops the refresh token; it stays in the owning source's state.
func cacheable(rec tokenkit.Record) tokenkit.Record {
	rec.RefreshToken = nil
	return rec
}

func bearerMetadata(rec tokenkit.Record) map[string]string {
	md := map[string]string{}
	if rec.AccessToken != "" {
		md[AuthorizationHeader] = "Bearer " + rec.AccessToken
	}
	return md
}
