package entity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAlreadyRegistered is returned when a descriptor name is registered twice.
var ErrAlreadyRegistered = errors.New("entity already registered")

// CycleError reports a dependency cycle, naming the full path.
type CycleError struct {
	// Path is the cycle with the starting entity repeated at the end,
	// e.g. ["issues", "comments", "issues"].
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// ResolutionError reports a strict-mode dependency violation: an entity the
// caller explicitly enabled whose dependency ended up disabled.
type ResolutionError struct {
	Entity     string
	Dependency string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("entity %q was explicitly requested but its dependency %q is disabled", e.Entity, e.Dependency)
}
