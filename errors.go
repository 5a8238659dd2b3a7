package easyad

import (
	"errors"
	"fmt"

	"github.com/go-ldap/ldap/v3"
)

// ErrNoBindCredentials is returned when an operation needs to bind but no
// credentials were supplied and no default bind username/password is
// configured.
var ErrNoBindCredentials = errors.New("easyad: no bind credentials available (supply Credentials or configure BindUsername/BindPassword)")

// NotFoundError is returned when a lookup matches no directory object.
type NotFoundError struct {
	Kind       string // "user" or "group"
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("easyad: no %s found matching %q", e.Kind, e.Identifier)
}

// AmbiguousResultError is returned when a lookup that requires a unique
// object matches more than one entry.
type AmbiguousResultError struct {
	Kind       string
	Identifier string
	Matches    int
}

func (e *AmbiguousResultError) Error() string {
	return fmt.Sprintf("easyad: %d %ss found matching %q, expected exactly one", e.Matches, e.Kind, e.Identifier)
}

// UsageError indicates the caller supplied invalid configuration or
// arguments, as opposed to a directory or transport failure.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return "easyad: " + e.Msg
}

// IsNotFound reports whether err indicates a lookup that matched nothing.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsAmbiguous reports whether err indicates a lookup that matched more
// than one object.
func IsAmbiguous(err error) bool {
	var are *AmbiguousResultError
	return errors.As(err, &are)
}

// IsAuthenticationError reports whether err is a bind failure caused by
// bad credentials rather than a transport or directory problem.
func IsAuthenticationError(err error) bool {
	return ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) ||
		ldap.IsErrorWithCode(err, ldap.LDAPResultInappropriateAuthentication)
}

// IsConnectionError reports whether err looks like a network or
// protocol-level failure talking to the directory.
func IsConnectionError(err error) bool {
	return ldap.IsErrorWithCode(err, ldap.ErrorNetwork) ||
		ldap.IsErrorWithCode(err, ldap.LDAPResultServerDown) ||
		ldap.IsErrorWithCode(err, ldap.LDAPResultUnavailable) ||
		ldap.IsErrorWithCode(err, ldap.LDAPResultBusy)
}
