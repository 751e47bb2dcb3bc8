package remote

import (
	"errors"
	"net/http"
	"strings"
)

// AuthenticationError marks a request the forge rejected
// because the credentials are missing, expired or lack
// permissions.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	if e.Err == nil {
		return "authentication failed"
	}

	return "authentication failed: " + e.Err.Error()
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// ClientError marks a request the forge rejected as
// invalid.
type ClientError struct {
	Err error
}

func (e *ClientError) Error() string {
	if e.Err == nil {
		return "request rejected"
	}

	return "request rejected: " + e.Err.Error()
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// IsAuthenticationError reports whether err wraps an
// AuthenticationError.
func IsAuthenticationError(err error) bool {
	var ae *AuthenticationError

	return errors.As(err, &ae)
}

// IsClientError reports whether err wraps a ClientError.
func IsClientError(err error) bool {
	var ce *ClientError

	return errors.As(err, &ce)
}

// ClassifyStatus wraps err according to the HTTP status
// of the response that caused it: 401 and 403 become an
// AuthenticationError, other 4xx a ClientError. Anything
// else is returned unchanged.
func ClassifyStatus(status int, err error) error {
	switch {
	case status == http.StatusUnauthorized,
		status == http.StatusForbidden:
		return &AuthenticationError{Err: err}
	case status >= http.StatusBadRequest &&
		status < http.StatusInternalServerError:
		return &ClientError{Err: err}
	default:
		return err
	}
}

// ConsentRevokedMessage is the message fragment session
// providers use when the user refused or revoked consent.
const ConsentRevokedMessage = "User did not consent"

func isConsentRevoked(err error) bool {
	return err != nil &&
		strings.Contains(err.Error(), ConsentRevokedMessage)
}

// errNotConnected short-circuits requests made while no
// session is available.
var errNotConnected = errors.New("not connected")
