// Package apierror is the error taxonomy shared by the request pipeline, the chat
// layer and their consumers.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAuthRequired is matched by every AuthRequiredError. Consumers should send
	// the user back to login; local credentials are already gone.
	ErrAuthRequired = errors.New("authentication required")
	// ErrUpload is matched by every UploadError.
	ErrUpload = errors.New("upload failed")
)

// NetworkError is a transport failure: no response was received.
type NetworkError struct {
	Op      string
	Err     error
	Timeout bool
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timeout: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthRequiredError means the refresh path is exhausted or absent.
// Response holds the 401 that triggered the refresh, if any.
type AuthRequiredError struct {
	Response *Response
	Err      error
}

func (e *AuthRequiredError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication required, please log in again: %v", e.Err)
	}
	return "authentication required, please log in again"
}

func (e *AuthRequiredError) Unwrap() error { return e.Err }

func (e *AuthRequiredError) Is(target error) bool { return target == ErrAuthRequired }

// FieldError is one field-level complaint from the backend.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries structured field errors. It is shown verbatim and never retried.
type ValidationError struct {
	Status int
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

// First returns the first field error, the one the UI displays.
func (e *ValidationError) First() FieldError {
	if len(e.Fields) == 0 {
		return FieldError{}
	}
	return e.Fields[0]
}

// Message returns the messages recorded for a field.
func (e *ValidationError) Message(field string) []string {
	var out []string
	for _, f := range e.Fields {
		if f.Field == field {
			out = append(out, f.Message)
		}
	}
	return out
}

// StatusError is a non-2xx response whose body reduced to a single message.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("request failed: %d: %s", e.Status, e.Message)
}

// UploadError is non-fatal: callers substitute the original local reference.
type UploadError struct {
	Ref string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q: %v", e.Ref, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

func (e *UploadError) Is(target error) bool { return target == ErrUpload }

// IsAuthRequired reports whether err means the user must log in again.
func IsAuthRequired(err error) bool {
	return errors.Is(err, ErrAuthRequired)
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Status
	}
	var ae *AuthRequiredError
	if errors.As(err, &ae) && ae.Response != nil {
		return ae.Response.StatusCode
	}
	return 0
}

// Display renders err as the single line a UI shows in a toast.
func Display(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		first := ve.First()
		if first.Field == "" || first.Field == nonFieldKey {
			return first.Message
		}
		return first.Field + ": " + first.Message
	}
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	if IsAuthRequired(err) {
		return "Authentication required. Please login again."
	}
	if IsNetwork(err) {
		return "Network error. Check your connection and try again."
	}
	return err.Error()
}
