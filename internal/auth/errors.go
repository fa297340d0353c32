package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when no verification strategy
	// accepts the email/password pair. It is deliberately uniform: the
	// caller cannot tell an unknown email from a wrong password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrLoginRequired is returned by gate checks that require an
	// authenticated session when none is present.
	ErrLoginRequired = errors.New("auth: login required")

	// ErrInvalidToken is returned when a bearer token fails signature,
	// expiry or session-lookup validation.
	ErrInvalidToken = errors.New("auth: invalid or expired token")
)

// DeniedError is returned when an authenticated session lacks a
// required permission or role.
type DeniedError struct {
	// Kind is "permission" or "role".
	Kind string
	// Missing lists the names that were required but not held.
	Missing []string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("auth: missing %s: %s", e.Kind, strings.Join(e.Missing, ", "))
}

// DeniedPermissions builds a DeniedError for missing permissions.
func DeniedPermissions(names ...string) *DeniedError {
	return &DeniedError{Kind: "permission", Missing: names}
}

// DeniedRole builds a DeniedError for missing roles.
func DeniedRole(names ...string) *DeniedError {
	return &DeniedError{Kind: "role", Missing: names}
}
