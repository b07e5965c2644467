package cachekit

import (
	"crypto/sha256"
	"encoding/hex"
)

// DefaultMaxKeyLength is the longest key handed to a backing store.
const DefaultMaxKeyLength = 64

// Key derives the store key for raw under prefix. Characters outside
// [A-Za-z0-9_.!] are stripped; when the result is longer than maxLen it is
// replaced by the hex SHA-256 of the unsanitized prefix+raw, truncated to
// maxLen, so overflow keys are always exactly maxLen long. maxLen <= 0
// disables hashing.
func Key(prefix, raw string, maxLen int) string {
	full := prefix + raw
	key := sanitize(full)
	if maxLen > 0 && len(key) > maxLen {
		return digest(full, maxLen)
	}
	return key
}

// digest returns n hex characters. Lengths above 64 extend the SHA-256 digest
// with counter-suffixed rounds.
func digest(s string, n int) string {
	sum := sha256.Sum256([]byte(s))
	out := hex.EncodeToString(sum[:])
	for i := byte(1); len(out) < n; i++ {
		next := sha256.Sum256(append([]byte(s), i))
		out += hex.EncodeToString(next[:])
	}
	return out[:n]
}

func sanitize(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '.' || c == '!' {
			out = append(out, c)
		}
	}
	return string(out)
}
