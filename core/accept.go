package core

import "time"

// IAPHeader carries the signed assertion added by Identity-Aware Proxy.
const IAPHeader = "x-goog-iap-jwt-assertion"

// AcceptConfig configures verification of third-party assertions on inbound
// requests.
type AcceptConfig struct {
	Issuers []IssuerAccept
	// Header names the request header holding a raw assertion. Empty means
	// a bearer token in Authorization.
	Header string
	// Leeway tolerates clock skew when checking exp/nbf/iat.
	Leeway time.Duration
}

// IssuerAccept describes how to accept tokens from a specific issuer.
type IssuerAccept struct {
	Issuer        string // empty selects the default issuers for the cert algorithm
	Audience      string // expected audience for this service (single value)
	CertsLocation string // certificate set URL; empty selects the default
}
