package oidckit

import (
	"encoding/json"
	"errors"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/PaulFidika/tokenkit/core"
	jwtkit "github.com/PaulFidika/tokenkit/jwt"
)

// keySet converts EC certificates into a jwx key set.
func keySet(certs []jwtkit.Certificate) (jwk.Set, error) {
	set := jwk.NewSet()
	for _, c := range certs {
		if c.Kty == "" {
			c.Kty = "EC"
		}
		raw, err := json.Marshal(c)
		if err != nil {
			return nil, core.Verificationf(core.ErrCertFormat, "%v", err)
		}
		key, err := jwk.ParseKey(raw)
		if err != nil {
			return nil, core.Verificationf(core.ErrCertFormat, "invalid EC certificate %q: %v", c.Kid, err)
		}
		if err := set.AddKey(key); err != nil {
			return nil, core.Verificationf(core.ErrCertFormat, "%v", err)
		}
	}
	return set, nil
}

func (v *Verifier) verifyES256(token string, certs []jwtkit.Certificate, opts VerifyOptions) (Claims, error) {
	set, err := keySet(certs)
	if err != nil {
		return nil, err
	}

	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return nil, &core.VerificationError{Kind: core.ErrMalformed, Err: err}
	}
	sigs := msg.Signatures()
	if len(sigs) != 1 || sigs[0].ProtectedHeaders().Algorithm() != jwa.ES256 {
		return nil, core.Verificationf(core.ErrSignatureInvalid, "token is not signed with ES256")
	}

	payload, err := jws.Verify([]byte(token), jws.WithKeySet(set))
	if err != nil {
		return nil, &core.VerificationError{Kind: core.ErrSignatureInvalid, Err: err}
	}

	_, err = jwt.Parse([]byte(token),
		jwt.WithVerify(false),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(opts.Leeway),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	)
	if err != nil {
		kind := core.ErrMalformed
		switch {
		case errors.Is(err, jwt.ErrTokenExpired()):
			kind = core.ErrExpired
		case errors.Is(err, jwt.ErrTokenNotYetValid()), errors.Is(err, jwt.ErrInvalidIssuedAt()):
			kind = core.ErrNotYetValid
		}
		return nil, &core.VerificationError{Kind: kind, Err: err}
	}

	claims := Claims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, &core.VerificationError{Kind: core.ErrMalformed, Err: err}
	}
	return checkPolicy(claims, AlgES256, opts)
}
