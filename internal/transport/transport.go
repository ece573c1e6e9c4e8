// Package transport defines the boundary between trove and the hosted
// tracking service. The core never speaks HTTP directly; it invokes named
// transport methods through the Client interface and classifies failures
// via the typed Error.
package transport

import (
	"context"
	"errors"
	"fmt"
)

// Params carries the named arguments of a transport invocation.
type Params map[string]any

// Client exposes the remote API as named methods. Method names are the
// transport_method strings declared by entity operation specs.
type Client interface {
	// Invoke calls the named method and returns the raw, pre-conversion
	// result: a map[string]any for single records or a []any for lists.
	Invoke(ctx context.Context, method string, params Params) (any, error)
}

// Error is a transport-level failure with enough structure for the
// dispatcher's retry policy to classify it.
type Error struct {
	Method     string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport %s: status %d: %v", e.Method, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Method, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a transport error worth retrying
// (rate limiting, server hiccups, timeouts).
func IsTransient(err error) bool {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Transient
	}
	return false
}

// ErrUnknownMethod is returned by clients for a method they do not serve.
var ErrUnknownMethod = errors.New("unknown transport method")
