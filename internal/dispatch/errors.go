package dispatch

import (
	"fmt"
	"strings"

	"github.com/zjrosen/trove/internal/operation"
)

// UnknownOperationError is returned when a method name matches neither an
// override nor a registered operation. It always carries the full list of
// known names so the caller can spot typos without source access.
type UnknownOperationError struct {
	Method string
	Known  []string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation %q; registered operations: %s",
		e.Method, strings.Join(e.Known, ", "))
}

// OperationError wraps a failure with the operation's owning entity and its
// full spec, so operators can diagnose from the message alone.
type OperationError struct {
	Op  *operation.Operation
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %s failed: %v", e.Op.String(), e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }
