package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigErrorIsConfiguration(t *testing.T) {
	err := error(Configf("aud", "should not be empty"))
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.NotErrorIs(t, err, ErrVerification)
	assert.Equal(t, "tokenkit: aud: should not be empty", err.Error())

	var ce *ConfigError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, "aud", ce.Field)
}

func TestVerificationErrorMatchesKindAndClass(t *testing.T) {
	err := error(Verificationf(ErrAudienceMismatch, "got %q", "other"))
	assert.ErrorIs(t, err, ErrVerification)
	assert.ErrorIs(t, err, ErrAudienceMismatch)
	assert.NotErrorIs(t, err, ErrIssuerMismatch)
	assert.NotErrorIs(t, err, ErrVerificationFailed)
}

func TestTransportErrorMessage(t *testing.T) {
	err := &TransportError{StatusCode: 400, Code: "invalid_grant", Description: "Bad Request"}
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, "tokenkit: http 400: invalid_grant: Bad Request", err.Error())
	assert.Equal(t, "tokenkit: http 502", (&TransportError{StatusCode: 502}).Error())
}

func TestProtocolErrorWrapsCause(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := &ProtocolError{Reason: "invalid response", Err: cause}
	assert.ErrorIs(t, err, ErrProtocol)
	assert.ErrorIs(t, err, cause)
}
