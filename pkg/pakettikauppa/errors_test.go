package pakettikauppa_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tournevent/pakettikauppa/pkg/pakettikauppa"
)

func TestRemoteError_Error(t *testing.T) {
	err := &pakettikauppa.RemoteError{Code: 1, Message: "Invalid data"}
	assert.Equal(t, "remote error 1: Invalid data", err.Error())
}

func TestRemoteError_Is(t *testing.T) {
	err1 := &pakettikauppa.RemoteError{Code: 1, Message: "Invalid data"}
	err2 := &pakettikauppa.RemoteError{Code: 1, Message: "Different message"}

	// Same code should match
	assert.True(t, errors.Is(err1, err2))
	assert.True(t, errors.Is(err1, pakettikauppa.ErrRemote))
}

func TestRemoteError_IsNot(t *testing.T) {
	err1 := &pakettikauppa.RemoteError{Code: 1}
	err2 := &pakettikauppa.RemoteError{Code: 2}

	assert.False(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, pakettikauppa.ErrProtocol))
}

func TestRemoteCode(t *testing.T) {
	wrapped := fmt.Errorf("create failed: %w", &pakettikauppa.RemoteError{Code: 7})

	code, ok := pakettikauppa.RemoteCode(wrapped)
	assert.True(t, ok)
	assert.Equal(t, 7, code)

	_, ok = pakettikauppa.RemoteCode(errors.New("plain"))
	assert.False(t, ok)
}

func TestProtocolError_Unwrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := &pakettikauppa.ProtocolError{Reason: "malformed response", StatusCode: 502, Cause: cause}

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, pakettikauppa.ErrProtocol))
	assert.Contains(t, err.Error(), "malformed response")
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestTransportError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &pakettikauppa.TransportError{URL: "https://example.test/x", Cause: cause}

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, pakettikauppa.ErrTransport))
	assert.Contains(t, err.Error(), "https://example.test/x")
}

func TestAuthenticationError(t *testing.T) {
	err := &pakettikauppa.AuthenticationError{StatusCode: 401, Message: "token endpoint rejected credentials"}

	assert.True(t, errors.Is(err, pakettikauppa.ErrAuthentication))
	assert.Equal(t, "authentication failed: token endpoint rejected credentials (HTTP 401)", err.Error())
}

func TestConfigurationError(t *testing.T) {
	err := &pakettikauppa.ConfigurationError{Field: "secret", Message: "secret not set"}

	assert.True(t, errors.Is(err, pakettikauppa.ErrConfiguration))
	assert.Equal(t, "configuration error (secret): secret not set", err.Error())
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&pakettikauppa.RemoteError{Code: 1}, "remote"},
		{&pakettikauppa.ProtocolError{Reason: "x"}, "protocol"},
		{&pakettikauppa.TransportError{URL: "u", Cause: errors.New("down")}, "transport"},
		{&pakettikauppa.AuthenticationError{Message: "no"}, "authentication"},
		{fmt.Errorf("wrapped: %w", pakettikauppa.ErrInvalidShipment), "invalid_shipment"},
		{errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, pakettikauppa.ErrorKind(tt.err), tt.err.Error())
	}
}
