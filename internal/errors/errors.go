package errors

import (
	"errors"
	"fmt"
)

// Common error types for the admin console core
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")

	// Token errors
	ErrTokenInvalid = errors.New("token invalid or expired")
	ErrNoSession    = errors.New("no active session")

	// Transport errors
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrServerError        = errors.New("server error")

	// Store errors
	ErrStoreCorrupted = errors.New("persisted session state corrupted")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
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
