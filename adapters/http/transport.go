package authhttp

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	credkit "github.com/PaulFidika/tokenkit/credentials"
)

// Transport attaches a credential source's request metadata to every
// outbound request.
type Transport struct {
	Source credkit.Source
	// Base is the underlying transport; nil means http.DefaultTransport.
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	md, err := t.Source.RequestMetadata(req.Context())
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	r2 := req.Clone(req.Context())
	for k, v := range md {
		r2.Header.Set(k, v)
	}
	return t.base().RoundTrip(r2)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// NewClient returns an *http.Client that authenticates with src.
func NewClient(src credkit.Source, base http.RoundTripper) *http.Client {
	return &http.Client{Transport: &Transport{Source: src, Base: base}}
}

// NewOAuth2Client returns a golang.org/x/oauth2 client backed by src. Only
// the bearer token is attached; use NewClient for sources that add other
// metadata such as a quota project.
func NewOAuth2Client(ctx context.Context, src credkit.Source) *http.Client {
	return oauth2.NewClient(ctx, credkit.TokenSource(ctx, src))
}
