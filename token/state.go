package tokenkit

import (
	"sync"
	"time"
)

// State holds the current access, refresh and ID tokens of one credential
// source together with expiry bookkeeping. It is safe for concurrent use.
type State struct {
	mu           sync.RWMutex
	accessToken  string
	idToken      string
	refreshToken string
	expiresIn    *int64
	expiresAt    *int64
	issuedAt     *int64
}

// NewState returns a State seeded with a refresh token (may be empty).
func NewState(refreshToken string) *State {
	return &State{refreshToken: refreshToken}
}

// Update replaces the access token, ID token and expiry fields with those of
// rec. The refresh token only changes when rec carries one.
func (s *State) Update(rec Record, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expiresAt = copyInt(rec.ExpiresAt)
	s.setExpiresIn(rec.ExpiresIn, now)
	// issued_at defaults to now when expires_in is set; an explicit value wins.
	if rec.IssuedAt != nil {
		s.issuedAt = copyInt(rec.IssuedAt)
	}
	s.accessToken = rec.AccessToken
	s.idToken = rec.IDToken
	if rec.RefreshToken != nil {
		s.refreshToken = *rec.RefreshToken
	}
}

// SetExpiresIn records a lifetime and stamps issued_at = now.
func (s *State) SetExpiresIn(seconds int64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setExpiresIn(&seconds, now)
}

func (s *State) setExpiresIn(seconds *int64, now time.Time) {
	if seconds == nil {
		s.expiresIn = nil
		s.issuedAt = nil
		return
	}
	n := *seconds
	issued := now.Unix()
	s.expiresIn = &n
	s.issuedAt = &issued
}

// SetExpiresAt sets an absolute expiry without touching issued_at.
func (s *State) SetExpiresAt(unix int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresAt = &unix
}

// SetIssuedAt overrides the issue time.
func (s *State) SetIssuedAt(unix int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issuedAt = &unix
}

// SetRefreshToken replaces the refresh token.
func (s *State) SetRefreshToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshToken = token
}

// EffectiveExpiresAt returns expires_at when set, else issued_at+expires_in.
func (s *State) EffectiveExpiresAt() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return effectiveExpiry(s.expiresAt, s.issuedAt, s.expiresIn)
}

// IsExpired is true when no expiry is known or now >= expiry.
func (s *State) IsExpired(now time.Time) bool {
	exp, ok := s.EffectiveExpiresAt()
	return !ok || now.Unix() >= exp
}

func (s *State) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *State) IDToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idToken
}

func (s *State) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// IssuedAt returns the issue time when known.
func (s *State) IssuedAt() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.issuedAt == nil {
		return 0, false
	}
	return *s.issuedAt, true
}

// LastReceivedToken returns {access_token, expires_at} when an access token
// is held.
func (s *State) LastReceivedToken() (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.accessToken == "" {
		return Record{}, false
	}
	rec := Record{AccessToken: s.accessToken}
	if exp, ok := effectiveExpiry(s.expiresAt, s.issuedAt, s.expiresIn); ok {
		rec.ExpiresAt = &exp
	}
	return rec, true
}

// Snapshot returns the current tokens as a Record with the effective expiry
// resolved into ExpiresAt. The refresh token is included only when known.
func (s *State) Snapshot() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := Record{
		AccessToken: s.accessToken,
		IDToken:     s.idToken,
		IssuedAt:    copyInt(s.issuedAt),
		ExpiresIn:   copyInt(s.expiresIn),
	}
	if exp, ok := effectiveExpiry(s.expiresAt, s.issuedAt, s.expiresIn); ok {
		rec.ExpiresAt = &exp
	}
	if s.refreshToken != "" {
		rt := s.refreshToken
		rec.RefreshToken = &rt
	}
	return rec
}

func copyInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
