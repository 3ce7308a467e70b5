package shared

import "sync"

// Storage is the injected handle to the shared storage location.
//
// Update runs fn against the live namespace state inside one critical
// section: no other Update or View on the same storage interleaves with it.
// That critical section is the "no suspension point between the staleness
// check and the write" guarantee every lock operation relies on. The
// namespace is created lazily, with the given version, on first Update.
//
// View is the read path; fn must not retain or mutate the namespace.
type Storage interface {
	Update(namespace, version string, fn func(*Namespace) error) error
	View(namespace string, fn func(*Namespace) error) error
}

// MemoryStorage is a mutex-guarded in-memory storage location.
type MemoryStorage struct {
	mu         sync.Mutex
	namespaces map[string]*Namespace
}

// NewMemoryStorage creates an empty in-memory storage location. Managers
// sharing the same MemoryStorage observe each other; separate instances do
// not.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{namespaces: make(map[string]*Namespace)}
}

// Update implements Storage.
func (s *MemoryStorage) Update(namespace, version string, fn func(*Namespace) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = newNamespace(version)
		s.namespaces[namespace] = ns
	}
	return fn(ns)
}

// View implements Storage. Viewing an absent namespace sees empty state
// without creating it. The callback receives a copy so stray mutation
// cannot leak into shared state.
func (s *MemoryStorage) View(namespace string, fn func(*Namespace) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return fn(newNamespace(""))
	}
	return fn(ns.clone())
}

var (
	processStorage     *MemoryStorage
	processStorageOnce sync.Once
)

// ProcessStorage returns the process-wide default storage location. This is
// the rendezvous point for independently wired managers in one process:
// every caller gets the same instance.
func ProcessStorage() *MemoryStorage {
	processStorageOnce.Do(func() {
		processStorage = NewMemoryStorage()
	})
	return processStorage
}
