package errors

import (
	"errors"
	"fmt"
)

// Common error types for the marketplace client
var (
	// Credential errors
	ErrNoCredentials      = errors.New("no credentials stored")
	ErrPartialCredentials = errors.New("partial credentials")
	ErrNoRefreshToken     = errors.New("no refresh token stored")

	// Refresh errors
	ErrRefreshRejected = errors.New("refresh token rejected")
	ErrEmptyAccess     = errors.New("refresh response carried no access token")

	// Chat errors
	ErrChannelNotOpen = errors.New("chat channel not open")
	ErrSessionClosed  = errors.New("chat session closed")
	ErrEmptyMessage   = errors.New("message content is empty")

	// Listing errors
	ErrInvalidListing = errors.New("invalid listing")
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
