package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failed remote call.
type Kind string

const (
	// KindTransport covers network failures and non-2xx responses.
	KindTransport Kind = "transport"
	// KindApplication means HTTP succeeded but the payload status was not "success".
	KindApplication Kind = "application"
)

// ErrMalformedResponse marks a payload that decodes but breaks the contract.
var ErrMalformedResponse = errors.New("malformed response")

// Error is returned by every Service operation that fails remotely.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, 0 when no response was received
	Message string // user-facing text
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the text to show a user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindTransport
}
