package shared

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// IDGenerator produces unique instance ids.
// Implemented by UUIDGenerator (production) and fixed generators (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator generates time-sortable UUIDv7 instance ids.
type UUIDGenerator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
func (UUIDGenerator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Clock abstracts wall time so stale-lock arithmetic is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// DefaultStaleLockTimeout is the takeover threshold used when none is
// configured.
const DefaultStaleLockTimeout = 30 * time.Second

// Manager is one instance's handle on a shared namespace: advisory named
// locks with stale takeover plus a key/value store.
//
// Each Manager carries a fresh unique instance id. Only the instance whose
// id matches a lock's owner may release it or be reported as holding it.
type Manager struct {
	namespace    string
	version      string
	staleTimeout time.Duration
	storage      Storage
	clock        Clock
	id           string
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the namespace this manager operates in.
// Two managers with different namespaces never observe each other's locks
// or data, even on the same storage location.
func WithNamespace(namespace string) Option {
	return func(m *Manager) { m.namespace = canonical(namespace) }
}

// WithVersion sets the version marker written when the namespace is
// lazily created.
func WithVersion(version string) Option {
	return func(m *Manager) { m.version = version }
}

// WithStaleLockTimeout sets the age beyond which a lock is treated as
// abandoned and eligible for takeover.
func WithStaleLockTimeout(d time.Duration) Option {
	return func(m *Manager) { m.staleTimeout = d }
}

// WithStorage injects the shared storage location. Defaults to
// ProcessStorage.
func WithStorage(s Storage) Option {
	return func(m *Manager) { m.storage = s }
}

// WithClock injects the clock used for lock timestamps and staleness.
// Defaults to wall time. Tests use a manual clock.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithIDGenerator injects the instance id generator. Defaults to UUIDv7.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Manager) { m.id = g.Generate() }
}

// NewManager creates a manager with a fresh unique instance id. The
// namespace itself is created lazily on the first mutating operation.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:    "weft",
		version:      "0",
		staleTimeout: DefaultStaleLockTimeout,
		storage:      ProcessStorage(),
		clock:        systemClock{},
		id:           UUIDGenerator{}.Generate(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InstanceID returns this manager's unique instance id.
func (m *Manager) InstanceID() string {
	return m.id
}

// Namespace returns the canonical namespace this manager operates in.
func (m *Manager) Namespace() string {
	return m.namespace
}

// canonical NFC-normalizes keys so visually identical namespace and lock
// names rendezvous regardless of their Unicode composition.
func canonical(s string) string {
	return norm.NFC.String(s)
}

func (m *Manager) isStale(l Lock) bool {
	return m.clock.Now().Sub(l.AcquiredAt) > m.staleTimeout
}

// AcquireLock attempts to take the named lock. If the lock is absent, or
// present but stale, the lock is rewritten with this instance's id and the
// current timestamp inside one critical section, and the result reports
// success (with WasStale set on a takeover). Otherwise the result carries
// the current owner id and nothing is mutated.
func (m *Manager) AcquireLock(name string, metadata map[string]any) (AcquireResult, error) {
	key := canonical(name)
	var res AcquireResult
	err := m.storage.Update(m.namespace, m.version, func(ns *Namespace) error {
		existing, held := ns.Locks[key]
		if held && !m.isStale(existing) {
			res = AcquireResult{Success: false, CurrentOwnerID: existing.OwnerID}
			return nil
		}
		ns.Locks[key] = Lock{
			OwnerID:    m.id,
			AcquiredAt: m.clock.Now(),
			Metadata:   metadata,
		}
		res = AcquireResult{Success: true, WasStale: held}
		return nil
	})
	return res, err
}

// ReleaseLock deletes the lock only if this instance owns it. Releasing an
// unowned or absent lock is a safe no-op returning false.
func (m *Manager) ReleaseLock(name string) (bool, error) {
	key := canonical(name)
	released := false
	err := m.storage.Update(m.namespace, m.version, func(ns *Namespace) error {
		if lock, held := ns.Locks[key]; held && lock.OwnerID == m.id {
			delete(ns.Locks, key)
			released = true
		}
		return nil
	})
	return released, err
}

// HasLock reports whether this instance holds the named lock. A stale lock
// is not held by anyone, its recorded owner included.
func (m *Manager) HasLock(name string) (bool, error) {
	key := canonical(name)
	held := false
	err := m.storage.View(m.namespace, func(ns *Namespace) error {
		lock, ok := ns.Locks[key]
		held = ok && !m.isStale(lock) && lock.OwnerID == m.id
		return nil
	})
	return held, err
}

// IsLockHeld reports whether any instance holds the named lock. Stale locks
// report as unheld.
func (m *Manager) IsLockHeld(name string) (bool, error) {
	key := canonical(name)
	held := false
	err := m.storage.View(m.namespace, func(ns *Namespace) error {
		lock, ok := ns.Locks[key]
		held = ok && !m.isStale(lock)
		return nil
	})
	return held, err
}

// GetLockInfo describes the named lock. Stale or absent locks return
// (LockInfo{}, false, nil).
func (m *Manager) GetLockInfo(name string) (LockInfo, bool, error) {
	key := canonical(name)
	var info LockInfo
	found := false
	err := m.storage.View(m.namespace, func(ns *Namespace) error {
		lock, ok := ns.Locks[key]
		if !ok || m.isStale(lock) {
			return nil
		}
		info = LockInfo{
			Name:        key,
			OwnerID:     lock.OwnerID,
			AcquiredAt:  lock.AcquiredAt,
			Age:         m.clock.Now().Sub(lock.AcquiredAt),
			Metadata:    lock.Metadata,
			OwnedBySelf: lock.OwnerID == m.id,
		}
		found = true
		return nil
	})
	return info, found, err
}

// ListLocks returns the names of live (non-stale) locks in sorted order.
func (m *Manager) ListLocks() ([]string, error) {
	var names []string
	err := m.storage.View(m.namespace, func(ns *Namespace) error {
		for name, lock := range ns.Locks {
			if !m.isStale(lock) {
				names = append(names, name)
			}
		}
		return nil
	})
	sort.Strings(names)
	return names, err
}

// ReleaseAllLocks releases every lock owned by this instance and returns
// the count released. Intended for shutdown/cleanup paths.
func (m *Manager) ReleaseAllLocks() (int, error) {
	released := 0
	err := m.storage.Update(m.namespace, m.version, func(ns *Namespace) error {
		for name, lock := range ns.Locks {
			if lock.OwnerID == m.id {
				delete(ns.Locks, name)
				released++
			}
		}
		return nil
	})
	return released, err
}

// CleanupStaleLocks removes every lock, regardless of owner, whose age
// exceeds the timeout, and returns the count removed. Intended to run
// periodically or on demand, independent of ownership.
func (m *Manager) CleanupStaleLocks() (int, error) {
	removed := 0
	err := m.storage.Update(m.namespace, m.version, func(ns *Namespace) error {
		for name, lock := range ns.Locks {
			if m.isStale(lock) {
				delete(ns.Locks, name)
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// SetSharedData stores a value in the namespace's key/value store.
func (m *Manager) SetSharedData(key string, value any) error {
	return m.storage.Update(m.namespace, m.version, func(ns *Namespace) error {
		ns.Data[canonical(key)] = value
		return nil
	})
}

// GetSharedData reads a value from the key/value store, returning def when
// the key is absent.
func (m *Manager) GetSharedData(key string, def any) (any, error) {
	value := def
	err := m.storage.View(m.namespace, func(ns *Namespace) error {
		if v, ok := ns.Data[canonical(key)]; ok {
			value = v
		}
		return nil
	})
	return value, err
}

// DeleteSharedData removes a key, reporting whether it was present.
func (m *Manager) DeleteSharedData(key string) (bool, error) {
	deleted := false
	err := m.storage.Update(m.namespace, m.version, func(ns *Namespace) error {
		k := canonical(key)
		if _, ok := ns.Data[k]; ok {
			delete(ns.Data, k)
			deleted = true
		}
		return nil
	})
	return deleted, err
}

// ClearSharedData empties the key/value store. The locks mapping is never
// touched.
func (m *Manager) ClearSharedData() error {
	return m.storage.Update(m.namespace, m.version, func(ns *Namespace) error {
		ns.Data = make(map[string]any)
		return nil
	})
}
