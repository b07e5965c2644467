package credkit

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/PaulFidika/tokenkit/core"
	tokenkit "github.com/PaulFidika/tokenkit/token"
)

// DefaultIAMBaseURL is the IAM Credentials API root.
const DefaultIAMBaseURL = "https://iamcredentials.googleapis.com"

type signBlobRequest struct {
	Payload string `json:"payload"`
}

type signBlobResponse struct {
	KeyID      string `json:"keyId"`
	SignedBlob string `json:"signedBlob"`
}

func signBlobWithIAM(ctx context.Context, client core.HTTPClient, baseURL, email, accessToken string, data []byte) ([]byte, error) {
	if accessToken == "" {
		return nil, core.Configf("access_token", "signing through the IAM API requires an access token")
	}
	body, err := json.Marshal(signBlobRequest{Payload: base64.StdEncoding.EncodeToString(data)})
	if err != nil {
		return nil, err
	}
	target := baseURL + "/v1/projects/-/serviceAccounts/" + url.PathEscape(email) + ":signBlob"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, core.Configf("iam_base_url", "invalid endpoint: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(AuthorizationHeader, "Bearer "+accessToken)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, tokenkit.StatusError(resp.StatusCode, raw)
	}
	var out signBlobResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &core.ProtocolError{Reason: "invalid signBlob response", Err: err}
	}
	sig, err := base64.StdEncoding.DecodeString(out.SignedBlob)
	if err != nil {
		return nil, &core.ProtocolError{Reason: "invalid signedBlob encoding", Err: err}
	}
	return sig, nil
}
