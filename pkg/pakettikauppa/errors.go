package pakettikauppa

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per error kind. Every typed error below matches its
// sentinel through errors.Is.
var (
	// ErrConfiguration indicates missing or invalid client configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrAuthentication indicates a failed token exchange or missing credentials.
	ErrAuthentication = errors.New("authentication failed")

	// ErrProtocol indicates a response that could not be understood.
	ErrProtocol = errors.New("protocol error")

	// ErrRemote indicates a non-zero status reported by the API.
	ErrRemote = errors.New("remote error")

	// ErrTransport indicates a network or timeout failure.
	ErrTransport = errors.New("transport error")

	// ErrInvalidShipment indicates a shipment that cannot be turned into a document.
	ErrInvalidShipment = errors.New("invalid shipment")
)

// ConfigurationError is returned when the client cannot be constructed.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Message)
	}
	return "configuration error: " + e.Message
}

// Is implements errors.Is for ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// AuthenticationError is returned when an access token cannot be obtained.
type AuthenticationError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *AuthenticationError) Error() string {
	msg := "authentication failed: " + e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for AuthenticationError.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}

// ProtocolError is returned when a response body is malformed or lacks a
// mandatory field.
type ProtocolError struct {
	Reason     string
	StatusCode int
	Cause      error
}

func (e *ProtocolError) Error() string {
	msg := "protocol error: " + e.Reason
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ProtocolError.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// RemoteError carries a non-zero status reported by the API. It is the only
// channel for business failures such as invalid data, insufficient balance
// or an unknown tracking code.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

// Is implements errors.Is for RemoteError. Two RemoteErrors match when their
// codes are equal.
func (e *RemoteError) Is(target error) bool {
	if target == ErrRemote {
		return true
	}
	t, ok := target.(*RemoteError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// TransportError wraps a failure of the HTTP round trip itself.
type TransportError struct {
	URL   string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: POST %s: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for TransportError.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// RemoteCode returns the provider status code carried by err, if any.
func RemoteCode(err error) (int, bool) {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Code, true
	}
	return 0, false
}

// ErrorKind classifies err for metrics labels and API error payloads.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrRemote):
		return "remote"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrInvalidShipment):
		return "invalid_shipment"
	default:
		return "unknown"
	}
}
