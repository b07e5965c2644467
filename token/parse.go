package tokenkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/PaulFidika/tokenkit/core"
)

// maxResponseBodySize bounds token endpoint replies (1 MB).
const maxResponseBodySize = 1 << 20

const formContentType = "application/x-www-form-urlencoded"

// Parse decodes a token endpoint body. Form-encoded bodies are detected from
// contentType; everything else is treated as JSON.
func Parse(body []byte, contentType string) (Record, error) {
	if isFormEncoded(contentType) {
		vals, err := url.ParseQuery(string(body))
		if err != nil {
			return Record{}, &core.ProtocolError{Reason: "invalid response", Err: err}
		}
		fields := make(map[string]any, len(vals))
		for k, v := range vals {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}
		return FromFields(fields)
	}

	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return Record{}, &core.ProtocolError{Reason: "invalid response", Err: err}
	}
	if fields == nil {
		return Record{}, &core.ProtocolError{Reason: "invalid response"}
	}
	return FromFields(fields)
}

// ParseResponse reads resp and parses it. Non-2xx replies become a
// core.TransportError carrying the OAuth error fields when present.
func ParseResponse(resp *http.Response) (Record, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return Record{}, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Record{}, StatusError(resp.StatusCode, body)
	}
	return Parse(body, resp.Header.Get("Content-Type"))
}

// StatusError builds the TransportError for a failed reply, extracting the
// RFC 6749 section 5.2 error body when it decodes.
func StatusError(status int, body []byte) *core.TransportError {
	te := &core.TransportError{StatusCode: status}
	var oauthErr struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &oauthErr); err == nil {
		te.Code = oauthErr.Error
		te.Description = oauthErr.ErrorDescription
	}
	return te
}

func isFormEncoded(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.TrimSpace(strings.ToLower(contentType))
	}
	return mt == formContentType
}
