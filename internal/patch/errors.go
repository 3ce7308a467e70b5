package patch

import (
	"errors"
	"fmt"
	"strings"
)

// ResolveError represents a failure to order a requested module set.
//
// Resolution errors include:
//   - Cyclic dependency: the requested modules depend on each other in a loop
//   - Missing dependency: a declared dependency is not in the requested set
type ResolveError struct {
	// Code identifies the error category.
	Code ResolveErrorCode

	// Message is a human-readable description.
	Message string

	// Module identifies the module at fault (for missing-dependency errors).
	Module string

	// Dependency identifies the missing dependency, if any.
	Dependency string

	// Cycle holds one dependency cycle path (for cyclic-dependency errors),
	// e.g. ["a", "b", "a"].
	Cycle []string
}

// ResolveErrorCode categorizes resolution errors.
type ResolveErrorCode string

const (
	// ErrCodeCyclicDependency indicates a cycle among the requested modules.
	ErrCodeCyclicDependency ResolveErrorCode = "CYCLIC_DEPENDENCY"

	// ErrCodeMissingDependency indicates a declared dependency is not
	// among the requested modules (or the module itself is unregistered).
	ErrCodeMissingDependency ResolveErrorCode = "MISSING_DEPENDENCY"
)

// Error implements the error interface.
func (e *ResolveError) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(e.Cycle, " -> "))
	}
	if e.Module != "" {
		return fmt.Sprintf("%s: %s (module=%s)", e.Code, e.Message, e.Module)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCyclicDependency returns true if the error is a cyclic-dependency error.
// Uses errors.As to handle wrapped errors.
func IsCyclicDependency(err error) bool {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCyclicDependency
	}
	return false
}

// IsMissingDependency returns true if the error is a missing-dependency error.
// Uses errors.As to handle wrapped errors.
func IsMissingDependency(err error) bool {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code == ErrCodeMissingDependency
	}
	return false
}

// NewCycleError creates a ResolveError for a dependency cycle.
func NewCycleError(cycle []string) *ResolveError {
	return &ResolveError{
		Code:    ErrCodeCyclicDependency,
		Message: "dependency cycle among requested modules",
		Cycle:   cycle,
	}
}

// NewMissingDependencyError creates a ResolveError for an unsatisfied
// dependency.
func NewMissingDependencyError(module, dependency string) *ResolveError {
	return &ResolveError{
		Code:       ErrCodeMissingDependency,
		Message:    fmt.Sprintf("dependency %q is not among the requested modules", dependency),
		Module:     module,
		Dependency: dependency,
	}
}

// NewUnknownModuleError creates a ResolveError for a requested module that
// is not registered.
func NewUnknownModuleError(module string) *ResolveError {
	return &ResolveError{
		Code:    ErrCodeMissingDependency,
		Message: "requested module is not registered",
		Module:  module,
	}
}
