package credkit

import (
	"context"
	"io"

	"github.com/PaulFidika/tokenkit/core"
	grantkit "github.com/PaulFidika/tokenkit/grant"
)

// Revoke revokes token at the default revocation endpoint.
func Revoke(ctx context.Context, client core.HTTPClient, token string) (bool, error) {
	return RevokeAt(ctx, client, grantkit.DefaultRevokeURL, token)
}

// RevokeAt revokes token at revokeURL. The result reports whether the server
// answered 200; only an empty token or a transport failure is an error.
func RevokeAt(ctx context.Context, client core.HTTPClient, revokeURL, token string) (bool, error) {
	req, err := grantkit.BuildRevokeRequest(ctx, revokeURL, token)
	if err != nil {
		return false, err
	}
	resp, err := core.DefaultHTTPClient(client).Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == 200, nil
}
