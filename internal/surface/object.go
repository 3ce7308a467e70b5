package surface

import (
	"fmt"
	"sort"
)

// Func is the calling convention for dynamic methods on the surface.
// Arguments and results are untyped; the host surface is dynamically shaped.
type Func func(args ...any) any

// Member is a sealed interface over the kinds of slots an Object can hold.
// Only Value, Method, and Accessor implement it.
type Member interface {
	member() // Sealed - only these types implement it
}

// Value is an inert data member.
type Value struct {
	V any
}

func (Value) member() {}

// Method is a callable member.
type Method struct {
	Fn Func
}

func (Method) member() {}

// Accessor is a live member whose value is recomputed on every read.
type Accessor struct {
	Get func() any
}

func (Accessor) member() {}

// Object is a node in the host API surface tree.
//
// Objects are NOT safe for concurrent mutation. The execution model is
// single-threaded and cooperative per instance; all patching completes
// before the call that requested it returns.
type Object struct {
	members map[string]Member
}

// NewObject creates an empty surface object.
func NewObject() *Object {
	return &Object{members: make(map[string]Member)}
}

// Lookup returns the raw member stored under name, without evaluating
// accessors. The second return reports whether the member exists.
func (o *Object) Lookup(name string) (Member, bool) {
	m, ok := o.members[name]
	return m, ok
}

// Has reports whether a member named name exists.
func (o *Object) Has(name string) bool {
	_, ok := o.members[name]
	return ok
}

// Get reads the member named name. Value members return their stored value,
// Method members return their Func, and Accessor members are evaluated.
// Returns (nil, false) if the member is absent.
func (o *Object) Get(name string) (any, bool) {
	m, ok := o.members[name]
	if !ok {
		return nil, false
	}
	switch m := m.(type) {
	case Value:
		return m.V, true
	case Method:
		return m.Fn, true
	case Accessor:
		return m.Get(), true
	default:
		return nil, false
	}
}

// Define stores a member under name, replacing any previous occupant.
func (o *Object) Define(name string, m Member) {
	o.members[name] = m
}

// Remove deletes the member named name. Removing an absent member is a no-op.
func (o *Object) Remove(name string) {
	delete(o.members, name)
}

// Call invokes the Method member named name with args.
// Returns an error if the member is absent or not callable.
func (o *Object) Call(name string, args ...any) (any, error) {
	m, ok := o.members[name]
	if !ok {
		return nil, fmt.Errorf("surface: no member %q", name)
	}
	method, ok := m.(Method)
	if !ok {
		return nil, fmt.Errorf("surface: member %q is not a method", name)
	}
	return method.Fn(args...), nil
}

// Names returns the member names in sorted order for deterministic iteration.
func (o *Object) Names() []string {
	names := make([]string, 0, len(o.members))
	for name := range o.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of members.
func (o *Object) Len() int {
	return len(o.members)
}
