package oidckit

// Certificate endpoints.
const (
	DefaultCertsURL = "https://www.googleapis.com/oauth2/v3/certs"
	IAPCertsURL     = "https://www.gstatic.com/iap/verify/public_key-jwk"
)

// Issuers accepted when VerifyOptions.Issuer is empty.
const (
	OAuth2Issuer      = "accounts.google.com"
	OAuth2IssuerHTTPS = "https://accounts.google.com"
	IAPIssuer         = "https://cloud.google.com/iap"
)

// Supported certificate algorithms.
const (
	AlgRS256 = "RS256"
	AlgES256 = "ES256"
)

func defaultIssuers(alg string) []string {
	if alg == AlgES256 {
		return []string{IAPIssuer}
	}
	return []string{OAuth2Issuer, OAuth2IssuerHTTPS}
}
