package core

import "net/http"

// HTTPClient is the transport capability used for every outbound call.
// *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHTTPClient returns c, or http.DefaultClient when c is nil.
func DefaultHTTPClient(c HTTPClient) HTTPClient {
	if c == nil {
		return http.DefaultClient
	}
	return c
}
