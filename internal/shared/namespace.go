package shared

import "time"

// Lock is a named advisory lock inside a namespace.
type Lock struct {
	OwnerID    string
	AcquiredAt time.Time
	Metadata   map[string]any
}

// Namespace is one isolated partition of the shared storage location:
// a version marker, the named locks, and arbitrary key/value data.
//
// A namespace is created lazily the first time any manager for its name
// runs, and lives for the lifetime of the storage location. It is shared by
// every consumer of the namespace name and owned by none of them.
type Namespace struct {
	Version string
	Locks   map[string]Lock
	Data    map[string]any
}

// newNamespace creates an empty namespace with the given version.
func newNamespace(version string) *Namespace {
	return &Namespace{
		Version: version,
		Locks:   make(map[string]Lock),
		Data:    make(map[string]any),
	}
}

// clone deep-copies the namespace maps (lock metadata values are shared;
// they are treated as immutable by convention).
func (ns *Namespace) clone() *Namespace {
	out := newNamespace(ns.Version)
	for name, lock := range ns.Locks {
		out.Locks[name] = lock
	}
	for key, value := range ns.Data {
		out.Data[key] = value
	}
	return out
}

// AcquireResult is the structured outcome of an acquisition attempt.
// Contention is not an error: callers inspect Success and decide to retry,
// wait, or report without unwinding control flow.
type AcquireResult struct {
	// Success reports whether this instance now holds the lock.
	Success bool

	// WasStale is true when the acquisition took over an abandoned lock.
	// Observable for diagnostics only; takeover is not an error.
	WasStale bool

	// CurrentOwnerID identifies the holding instance when Success is false.
	CurrentOwnerID string
}

// LockInfo describes a live (non-stale) lock for ownership queries.
type LockInfo struct {
	Name        string
	OwnerID     string
	AcquiredAt  time.Time
	Age         time.Duration
	Metadata    map[string]any
	OwnedBySelf bool
}
