package shared

import (
	"errors"
	"fmt"
)

// LockContentionError reports a failed cross-instance acquisition for
// callers that want an error value instead of inspecting AcquireResult.
// It carries the current owner id for diagnostics.
//
// AcquireLock itself never returns this: contention is a structured result,
// not an exception in the hot path.
type LockContentionError struct {
	Name           string
	CurrentOwnerID string
}

// Error implements the error interface.
func (e *LockContentionError) Error() string {
	return fmt.Sprintf("lock %q is held by instance %s", e.Name, e.CurrentOwnerID)
}

// IsLockContention returns true if the error is a LockContentionError.
// Uses errors.As to handle wrapped errors.
func IsLockContention(err error) bool {
	var le *LockContentionError
	return errors.As(err, &le)
}

// NewLockContentionError creates a LockContentionError from an acquisition
// result.
func NewLockContentionError(name string, res AcquireResult) *LockContentionError {
	return &LockContentionError{Name: name, CurrentOwnerID: res.CurrentOwnerID}
}
