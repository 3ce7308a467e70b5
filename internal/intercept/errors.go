package intercept

import "errors"

// Sentinel errors returned by interceptor lifecycle operations.
var (
	// ErrMissingTarget is returned when an interceptor is constructed
	// against an absent target object or method slot.
	ErrMissingTarget = errors.New("intercept: target method does not exist")

	// ErrAlreadyRestored is returned when Enable is called after Restore.
	// Restore is terminal; construct a new interceptor instead.
	ErrAlreadyRestored = errors.New("intercept: interceptor has been restored")
)
