package credkit

import (
	"context"
	"time"

	tokenkit "github.com/PaulFidika/tokenkit/token"
)

// Static serves an access token obtained elsewhere. It is never refreshed.
type Static struct {
	rec tokenkit.Record
}

// NewStatic wraps token. A zero expiry means the expiry is unknown.
func NewStatic(token string, expiry time.Time) *Static {
	rec := tokenkit.Record{AccessToken: token, TokenType: "Bearer"}
	if !expiry.IsZero() {
		rec.ExpiresAt = tokenkit.Int64(expiry.Unix())
	}
	return &Static{rec: rec}
}

func (s *Static) FetchAuthToken(context.Context) (tokenkit.Record, error) { return s.rec, nil }

func (s *Static) RequestMetadata(context.Context) (map[string]string, error) {
	return bearerMetadata(s.rec), nil
}

func (s *Static) CacheKey() string { return "" }
