package core

import (
	"errors"
	"fmt"
)

// Top-level error classes. Every error returned by tokenkit matches exactly one
// of these with errors.Is.
var (
	ErrConfiguration = errors.New("tokenkit: configuration error")
	ErrProtocol      = errors.New("tokenkit: protocol error")
	ErrTransport     = errors.New("tokenkit: transport error")
	ErrVerification  = errors.New("tokenkit: verification error")

	// ErrVerificationFailed is the opaque result returned by verifiers when the
	// caller did not ask for detailed errors.
	ErrVerificationFailed = errors.New("tokenkit: verification failed")
)

// Verification kinds carried by VerificationError.
var (
	ErrSignatureInvalid     = errors.New("signature invalid")
	ErrExpired              = errors.New("token expired")
	ErrNotYetValid          = errors.New("token not yet valid")
	ErrMalformed            = errors.New("token malformed")
	ErrAudienceMismatch     = errors.New("audience does not match")
	ErrIssuerMismatch       = errors.New("issuer does not match")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrCertFormat           = errors.New("invalid certificate set")
)

// ConfigError reports a missing or invalid field, detected at construction or
// request-build time.
type ConfigError struct {
	Field  string
	Reason string
}

// Configf builds a ConfigError for field with a formatted reason.
func Configf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "tokenkit: " + e.Reason
	}
	return fmt.Sprintf("tokenkit: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// ProtocolError reports a token endpoint reply that could not be decoded.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tokenkit: %s: %v", e.Reason, e.Err)
	}
	return "tokenkit: " + e.Reason
}

func (e *ProtocolError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrProtocol, e.Err}
	}
	return []error{ErrProtocol}
}

// TransportError reports a non-success HTTP status from a remote endpoint.
// Code and Description carry the RFC 6749 section 5.2 error fields when the
// server sent them.
type TransportError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *TransportError) Error() string {
	if e.Code != "" {
		if e.Description != "" {
			return fmt.Sprintf("tokenkit: http %d: %s: %s", e.StatusCode, e.Code, e.Description)
		}
		return fmt.Sprintf("tokenkit: http %d: %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("tokenkit: http %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error { return ErrTransport }

// VerificationError is the single discriminated error produced by token
// verification. Kind is one of the verification kinds above.
type VerificationError struct {
	Kind error
	Err  error
}

// Verificationf wraps a formatted cause under kind.
func Verificationf(kind error, format string, args ...any) *VerificationError {
	return &VerificationError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tokenkit: %v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("tokenkit: %v", e.Kind)
}

func (e *VerificationError) Unwrap() []error {
	out := []error{ErrVerification, e.Kind}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}
