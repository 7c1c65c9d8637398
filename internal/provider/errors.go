package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// CallbackError is a failed callback delivery. Transient failures are worth
// redelivering; permanent ones are not.
type CallbackError struct {
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

func (e *CallbackError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := []string{"callback failed"}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *CallbackError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether a callback should be redelivered later.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, context.Canceled):
		return false
	}

	var callbackErr *CallbackError
	if errors.As(err, &callbackErr) {
		return callbackErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
