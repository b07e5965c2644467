package jwtkit

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
)

// Certificate is a JWK-like public key record as published by certificate
// endpoints. RSA keys carry N/E, EC keys carry Crv/X/Y.
type Certificate struct {
	Kty string `json:"kty,omitempty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n,omitempty"` // base64url
	E   string `json:"e,omitempty"` // base64url
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"` // base64url
	Y   string `json:"y,omitempty"` // base64url
}

// CertSet is the {"keys": [...]} document served by certificate endpoints.
type CertSet struct {
	Keys []Certificate `json:"keys"`
}

// RSAPublicToCert converts an RSA public key to a certificate record.
func RSAPublicToCert(pub *rsa.PublicKey, kid, alg string) Certificate {
	n := base64URLEncode(pub.N)
	e := base64URLEncode(big.NewInt(int64(pub.E)))
	return Certificate{Kty: "RSA", Use: "sig", Kid: kid, Alg: alg, N: n, E: e}
}

// ECPublicToCert converts a P-256 public key to a certificate record.
func ECPublicToCert(pub *ecdsa.PublicKey, kid, alg string) Certificate {
	size := (pub.Curve.Params().BitSize + 7) / 8
	x := make([]byte, size)
	y := make([]byte, size)
	pub.X.FillBytes(x)
	pub.Y.FillBytes(y)
	return Certificate{
		Kty: "EC",
		Use: "sig",
		Kid: kid,
		Alg: alg,
		Crv: pub.Curve.Params().Name,
		X:   base64.RawURLEncoding.EncodeToString(x),
		Y:   base64.RawURLEncoding.EncodeToString(y),
	}
}

// RSAPublicKey rebuilds the RSA public key described by c.
func (c Certificate) RSAPublicKey() (*rsa.PublicKey, error) {
	if c.N == "" || c.E == "" {
		return nil, errors.New(`RSA certs expects "n" and "e" to be set`)
	}
	n, err := base64URLDecode(c.N)
	if err != nil {
		return nil, fmt.Errorf("decode n: %w", err)
	}
	e, err := base64URLDecode(c.E)
	if err != nil {
		return nil, fmt.Errorf("decode e: %w", err)
	}
	if !e.IsInt64() || e.Int64() <= 1 || e.Int64() > 1<<31-1 {
		return nil, errors.New("invalid RSA exponent")
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// ECPublicKey rebuilds the P-256 public key described by c.
func (c Certificate) ECPublicKey() (*ecdsa.PublicKey, error) {
	if c.Crv != "P-256" {
		return nil, fmt.Errorf("unsupported curve %q", c.Crv)
	}
	x, err := base64URLDecode(c.X)
	if err != nil {
		return nil, fmt.Errorf("decode x: %w", err)
	}
	y, err := base64URLDecode(c.Y)
	if err != nil {
		return nil, fmt.Errorf("decode y: %w", err)
	}
	curve := elliptic.P256()
	if !curve.IsOnCurve(x, y) {
		return nil, errors.New("point is not on curve")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// ServeCerts writes the certificate set as JSON to the ResponseWriter.
func ServeCerts(w http.ResponseWriter, r *http.Request, cs CertSet) {
	// Marshal first to compute a stable ETag and set cache headers
	b, _ := json.Marshal(cs)
	sum := sha256.Sum256(b)
	etag := "\"" + hex.EncodeToString(sum[:]) + "\""

	// Conditional GET support
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300, must-revalidate")
	w.Header().Set("ETag", etag)
	_, _ = w.Write(b)
}

func base64URLEncode(i *big.Int) string {
	b := i.Bytes()
	// Remove leading zeros for canonical form
	for len(b) > 0 && b[0] == 0x00 {
		b = b[1:]
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func base64URLDecode(s string) (*big.Int, error) {
	// Some publishers keep the padding.
	b, err := base64.RawURLEncoding.DecodeString(trimPadding(s))
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

func trimPadding(s string) string {
	for len(s) > 0 && s[len(s)-1] == '=' {
		s = s[:len(s)-1]
	}
	return s
}
