package intercept

import (
	"sync"

	"github.com/weftlabs/weft/internal/surface"
)

// slotKey identifies one method slot on one live object.
type slotKey struct {
	target *surface.Object
	method string
}

// slot owns the interception state for a single method slot: the original
// method, captured once, and the ordered stack of wrapper layers.
//
// Layers are ordered bottom (enabled first) to top. The installed method is
// the composition of all layers over the original; recompose rebuilds it
// after any stack change.
type slot struct {
	target     *surface.Object
	method     string
	original   surface.Func
	layers     []*Interceptor
	terminated bool
}

// registry maps live slots process-wide so that interceptors constructed
// independently against the same method share one stack.
type registry struct {
	mu    sync.Mutex
	slots map[slotKey]*slot
}

var slots = &registry{slots: make(map[slotKey]*slot)}

// acquire returns the slot for (target, method), capturing the original
// method if the slot is new. Fails with ErrMissingTarget if the slot does
// not hold a method.
func (r *registry) acquire(target *surface.Object, method string) (*slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := slotKey{target: target, method: method}
	if s, ok := r.slots[key]; ok {
		return s, nil
	}

	m, ok := target.Lookup(method)
	if !ok {
		return nil, ErrMissingTarget
	}
	original, ok := m.(surface.Method)
	if !ok {
		return nil, ErrMissingTarget
	}

	s := &slot{target: target, method: method, original: original.Fn}
	r.slots[key] = s
	return s, nil
}

// drop removes a slot from the registry after Restore, so a later
// interceptor re-captures whatever then occupies the method.
func (r *registry) drop(s *slot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, slotKey{target: s.target, method: s.method})
}

// push appends a layer to the top of the stack and reinstalls.
func (s *slot) push(ic *Interceptor) {
	s.layers = append(s.layers, ic)
	s.recompose()
}

// remove splices one interceptor's layer out of the stack, wherever it
// sits, and reinstalls. Layers above and below are preserved.
func (s *slot) remove(ic *Interceptor) {
	for i, layer := range s.layers {
		if layer == ic {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			break
		}
	}
	s.recompose()
}

// recompose rebuilds the installed method from the original plus the
// current layer stack. With no layers the original itself is reinstalled.
func (s *slot) recompose() {
	fn := s.original
	for _, layer := range s.layers {
		fn = layer.wrap(fn)
	}
	s.target.Define(s.method, surface.Method{Fn: fn})
}

// restore pins the original back, empties the stack, and terminates the
// slot. Every interceptor constructed against the slot, enabled or not,
// is restored from this point on.
func (s *slot) restore() {
	for _, layer := range s.layers {
		layer.enabled = false
	}
	s.layers = nil
	s.terminated = true
	s.target.Define(s.method, surface.Method{Fn: s.original})
}
