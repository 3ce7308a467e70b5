// Package shared gives each running instance of the framework a
// conflict-free way to claim advisory ownership of named resources and to
// publish/read data, across instances that were loaded independently but
// share one storage location.
//
// COORDINATION MODEL:
//
// Instances rendezvous at a well-known, versioned storage location
// addressed by namespace string. Ownership is explicit (a fresh unique
// instance id per Manager) and staleness is explicit (an acquisition
// timestamp plus a configured timeout), rather than implicit trust. A lock
// whose holder has not refreshed it within the timeout is treated as
// abandoned and may be taken over by any instance.
//
// Locks are advisory, not a true mutual-exclusion primitive: each storage
// operation is individually synchronous and runs inside one critical
// section, so there is no suspension point between the staleness check and
// the write. Races between separate instances are resolved by last-write-
// wins, never by blocking or a handshake.
//
// The storage location is an injected Storage handle, so the core never
// hard-codes where the shared state physically lives. ProcessStorage is the
// in-process default; SQLiteStorage persists across processes.
package shared
