// Package tokenkit holds the token record returned by authorization servers,
// its parser, and the mutable token state owned by a credential source.
package tokenkit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PaulFidika/tokenkit/core"
)

// Record is one normalized token endpoint reply. Optional numeric fields are
// pointers so that "absent" and "zero" stay distinguishable; RefreshToken is a
// pointer so that an omitted refresh token never erases a known one.
type Record struct {
	AccessToken  string  `json:"access_token,omitempty"`
	IDToken      string  `json:"id_token,omitempty"`
	RefreshToken *string `json:"refresh_token,omitempty"`
	TokenType    string  `json:"token_type,omitempty"`
	Scope        string  `json:"scope,omitempty"`
	ExpiresIn    *int64  `json:"expires_in,omitempty"`
	ExpiresAt    *int64  `json:"expires_at,omitempty"`
	IssuedAt     *int64  `json:"issued_at,omitempty"`

	// Extra holds every field the server sent that has no typed home.
	Extra map[string]any `json:"-"`
}

// EffectiveExpiresAt returns ExpiresAt when set, else IssuedAt+ExpiresIn when
// both are set.
func (r Record) EffectiveExpiresAt() (int64, bool) {
	return effectiveExpiry(r.ExpiresAt, r.IssuedAt, r.ExpiresIn)
}

// IsExpired is true when no expiry is known or now is at or past it.
func (r Record) IsExpired(now time.Time) bool {
	exp, ok := r.EffectiveExpiresAt()
	return !ok || now.Unix() >= exp
}

// Expiry returns the effective expiry as a time, or the zero time.
func (r Record) Expiry() time.Time {
	if exp, ok := r.EffectiveExpiresAt(); ok {
		return time.Unix(exp, 0)
	}
	return time.Time{}
}

// String redacts the token values.
func (r Record) String() string {
	redact := func(s string) string {
		if s == "" {
			return "<empty>"
		}
		return "[REDACTED]"
	}
	exp := "<none>"
	if e, ok := r.EffectiveExpiresAt(); ok {
		exp = strconv.FormatInt(e, 10)
	}
	return fmt.Sprintf("Record{AccessToken: %s, IDToken: %s, ExpiresAt: %s}",
		redact(r.AccessToken), redact(r.IDToken), exp)
}

func effectiveExpiry(expiresAt, issuedAt, expiresIn *int64) (int64, bool) {
	if expiresAt != nil {
		return *expiresAt, true
	}
	if issuedAt != nil && expiresIn != nil {
		return *issuedAt + *expiresIn, true
	}
	return 0, false
}

// FromFields builds a Record from decoded key/value pairs. Values may be
// strings (form encoding) or JSON scalars.
func FromFields(fields map[string]any) (Record, error) {
	var rec Record
	for k, v := range fields {
		switch k {
		case "access_token":
			rec.AccessToken = stringValue(v)
		case "id_token":
			rec.IDToken = stringValue(v)
		case "refresh_token":
			s := stringValue(v)
			rec.RefreshToken = &s
		case "token_type":
			rec.TokenType = stringValue(v)
		case "scope":
			rec.Scope = stringValue(v)
		case "expires_in", "expires_at", "issued_at":
			n, ok, err := intValue(v)
			if err != nil {
				return Record{}, &core.ProtocolError{Reason: "invalid " + k, Err: err}
			}
			if !ok {
				continue
			}
			switch k {
			case "expires_in":
				rec.ExpiresIn = &n
			case "expires_at":
				rec.ExpiresAt = &n
			default:
				rec.IssuedAt = &n
			}
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]any)
			}
			rec.Extra[k] = v
		}
	}
	return rec, nil
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// intValue reports (value, present, error). JSON null and "" count as absent.
func intValue(v any) (int64, bool, error) {
	switch t := v.(type) {
	case nil:
		return 0, false, nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true, nil
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false, err
		}
		return int64(f), true, nil
	case float64:
		return int64(t), true, nil
	case int:
		return int64(t), true, nil
	case int64:
		return t, true, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false, err
		}
		return n, true, nil
	default:
		return 0, false, fmt.Errorf("unexpected type %T", v)
	}
}

// Int64 returns a pointer to n.
func Int64(n int64) *int64 { return &n }

// String returns a pointer to s.
func String(s string) *string { return &s }
