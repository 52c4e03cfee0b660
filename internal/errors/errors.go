package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy for the session client
var (
	// Refresh errors
	ErrNoRefreshToken      = errors.New("no refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrTransientRefresh    = errors.New("refresh failed")

	// Access token errors
	ErrMalformedToken = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("missing or invalid token")

	// Account errors
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")

	// Store errors
	ErrNoCredentials = errors.New("no credentials")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")

	// General errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsTerminal reports whether err ends the session (credentials were cleared).
func IsTerminal(err error) bool {
	return errors.Is(err, ErrRefreshTokenExpired) ||
		errors.Is(err, ErrInvalidRefreshToken) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrAccountDeactivated)
}
