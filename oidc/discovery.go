package oidckit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/PaulFidika/tokenkit/core"
)

// Discovery is the subset of OpenID provider metadata this package uses.
type Discovery struct {
	Issuer             string `json:"issuer"`
	TokenEndpoint      string `json:"token_endpoint"`
	RevocationEndpoint string `json:"revocation_endpoint"`
	JWKSURI            string `json:"jwks_uri"`
}

// Endpoint returns the token endpoint for golang.org/x/oauth2 consumers.
func (d *Discovery) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{TokenURL: d.TokenEndpoint, AuthStyle: oauth2.AuthStyleInParams}
}

// Discover fetches issuer's /.well-known/openid-configuration.
func Discover(ctx context.Context, client core.HTTPClient, issuer string) (*Discovery, error) {
	trimmed := strings.TrimRight(issuer, "/")
	if trimmed == "" {
		return nil, errors.New("oidc: issuer is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmed+"/.well-known/openid-configuration", nil)
	if err != nil {
		return nil, err
	}
	resp, err := core.DefaultHTTPClient(client).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("oidc: discovery failed: %s", resp.Status)
	}
	var doc Discovery
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, err
	}
	discovered := strings.TrimRight(doc.Issuer, "/")
	if discovered != "" && discovered != trimmed {
		return nil, fmt.Errorf("oidc: issuer mismatch: %s", doc.Issuer)
	}
	return &doc, nil
}

// DiscoverCertsURL returns the jwks_uri advertised by issuer, for use as
// VerifyOptions.CertsLocation.
func DiscoverCertsURL(ctx context.Context, client core.HTTPClient, issuer string) (string, error) {
	doc, err := Discover(ctx, client, issuer)
	if err != nil {
		return "", err
	}
	if doc.JWKSURI == "" {
		return "", errors.New("oidc: discovery missing jwks_uri")
	}
	return doc.JWKSURI, nil
}
