package oidckit

import (
	"encoding/json"
	"time"
)

// Claims is the decoded payload of a verified token.
type Claims map[string]any

func (c Claims) String(name string) string {
	s, _ := c[name].(string)
	return s
}

func (c Claims) Issuer() string  { return c.String("iss") }
func (c Claims) Subject() string { return c.String("sub") }

// Audience returns the aud claim as a list whether it was sent as a string
// or an array.
func (c Claims) Audience() []string {
	switch v := c["aud"].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, a := range v {
			if s, ok := a.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Expiry returns the exp claim, or the zero time when absent.
func (c Claims) Expiry() time.Time {
	if n, ok := numericClaim(c["exp"]); ok {
		return time.Unix(n, 0)
	}
	return time.Time{}
}

func numericClaim(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// hasAudience applies the audience rule shared by both algorithms: a token
// without aud passes, otherwise aud must be (or contain) expected.
func (c Claims) hasAudience(expected string) bool {
	if expected == "" {
		return true
	}
	if _, ok := c["aud"]; !ok {
		return true
	}
	for _, a := range c.Audience() {
		if a == expected {
			return true
		}
	}
	return false
}
