package oidckit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/PaulFidika/tokenkit/core"
	jwtkit "github.com/PaulFidika/tokenkit/jwt"
	tokenkit "github.com/PaulFidika/tokenkit/token"
)

// CertFetcher retrieves the certificate set published at location.
type CertFetcher interface {
	FetchCerts(ctx context.Context, location string) ([]jwtkit.Certificate, error)
}

// HTTPCertFetcher fetches certificate sets over HTTP. Locations without an
// http(s) scheme are read from the local filesystem.
type HTTPCertFetcher struct {
	Client core.HTTPClient
}

func (f HTTPCertFetcher) FetchCerts(ctx context.Context, location string) ([]jwtkit.Certificate, error) {
	var (
		raw []byte
		err error
	)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		raw, err = f.get(ctx, location)
	} else {
		raw, err = os.ReadFile(location)
		if err != nil {
			return nil, core.Configf("certs_location", "failed to retrieve certificates from local file %q: %v", location, err)
		}
	}
	if err != nil {
		return nil, err
	}
	return DecodeCerts(raw)
}

func (f HTTPCertFetcher) get(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, core.Configf("certs_location", "invalid certificate URL: %v", err)
	}
	resp, err := core.DefaultHTTPClient(f.Client).Do(req)
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
	return raw, nil
}

// DecodeCerts accepts either a {"keys": [...]} document or a bare array.
func DecodeCerts(raw []byte) ([]jwtkit.Certificate, error) {
	raw = bytes.TrimSpace(raw)
	var certs []jwtkit.Certificate
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &certs); err != nil {
			return nil, core.Verificationf(core.ErrCertFormat, "invalid certificate set: %v", err)
		}
	} else {
		var set jwtkit.CertSet
		if err := json.Unmarshal(raw, &set); err != nil {
			return nil, core.Verificationf(core.ErrCertFormat, "invalid certificate set: %v", err)
		}
		certs = set.Keys
	}
	if len(certs) == 0 {
		return nil, core.Verificationf(core.ErrCertFormat, "certificate set is empty")
	}
	return certs, nil
}

// determineAlg returns the algorithm shared by every certificate.
func determineAlg(certs []jwtkit.Certificate) (string, error) {
	if len(certs) == 0 {
		return "", core.Verificationf(core.ErrCertFormat, "certificate set is empty")
	}
	alg := ""
	for _, c := range certs {
		if c.Alg == "" {
			return "", core.Verificationf(core.ErrCertFormat, `certs expects "alg" to be set`)
		}
		if alg == "" {
			alg = c.Alg
		}
		if c.Alg != alg {
			return "", core.Verificationf(core.ErrCertFormat, "more than one alg detected in certs")
		}
	}
	return alg, nil
}
