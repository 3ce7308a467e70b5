package surface

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidPathError reports a malformed dotted path or a traversal that would
// require restructuring the host graph.
type InvalidPathError struct {
	Path    string
	Message string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Message)
}

// IsInvalidPath returns true if the error is an InvalidPathError.
// Uses errors.As to handle wrapped errors.
func IsInvalidPath(err error) bool {
	var pe *InvalidPathError
	return errors.As(err, &pe)
}

// ParsePath splits a dotted path ("Editing.enterSelectionMode") into
// segments. Empty paths and empty segments are rejected.
func ParsePath(path string) ([]string, error) {
	if path == "" {
		return nil, &InvalidPathError{Path: path, Message: "empty path"}
	}
	segments := strings.Split(path, ".")
	for _, seg := range segments {
		if seg == "" {
			return nil, &InvalidPathError{Path: path, Message: "empty segment"}
		}
	}
	return segments, nil
}

// Slot identifies the leaf position of a path: a parent object plus the
// leaf member name. Slots are how the patch engine addresses the single
// position it owns without touching siblings.
type Slot struct {
	Parent *Object
	Name   string
}

// Lookup returns the raw member currently occupying the slot.
func (s Slot) Lookup() (Member, bool) {
	return s.Parent.Lookup(s.Name)
}

// Get reads the slot, evaluating accessors.
func (s Slot) Get() (any, bool) {
	return s.Parent.Get(s.Name)
}

// Define stores a member in the slot, replacing any previous occupant.
func (s Slot) Define(m Member) {
	s.Parent.Define(s.Name, m)
}

// Remove empties the slot.
func (s Slot) Remove() {
	s.Parent.Remove(s.Name)
}

// Restore puts the slot back to a previously captured state: the prior
// member if it existed, otherwise empty.
func (s Slot) Restore(prev Member, existed bool) {
	if existed {
		s.Parent.Define(s.Name, prev)
	} else {
		s.Parent.Remove(s.Name)
	}
}

// EnsurePath walks root along the dotted path, creating missing intermediate
// namespace Objects, and returns the leaf Slot.
//
// Intermediate objects are extended, never replaced: if a segment is already
// occupied by a non-Object member, EnsurePath fails with InvalidPathError
// rather than restructuring the host graph. Sibling members of intermediate
// objects are never touched.
func EnsurePath(root *Object, path string) (Slot, error) {
	segments, err := ParsePath(path)
	if err != nil {
		return Slot{}, err
	}

	current := root
	for i, seg := range segments[:len(segments)-1] {
		m, ok := current.Lookup(seg)
		if !ok {
			child := NewObject()
			current.Define(seg, Value{V: child})
			current = child
			continue
		}
		val, ok := m.(Value)
		if !ok {
			return Slot{}, &InvalidPathError{
				Path:    path,
				Message: fmt.Sprintf("segment %q is not a namespace", strings.Join(segments[:i+1], ".")),
			}
		}
		child, ok := val.V.(*Object)
		if !ok {
			return Slot{}, &InvalidPathError{
				Path:    path,
				Message: fmt.Sprintf("segment %q is occupied by a non-object member", strings.Join(segments[:i+1], ".")),
			}
		}
		current = child
	}

	return Slot{Parent: current, Name: segments[len(segments)-1]}, nil
}

// ResolvePath walks root along the dotted path without creating anything.
// Returns the leaf Slot; the slot itself may be empty.
func ResolvePath(root *Object, path string) (Slot, error) {
	segments, err := ParsePath(path)
	if err != nil {
		return Slot{}, err
	}

	current := root
	for i, seg := range segments[:len(segments)-1] {
		m, ok := current.Lookup(seg)
		if !ok {
			return Slot{}, &InvalidPathError{
				Path:    path,
				Message: fmt.Sprintf("segment %q does not exist", strings.Join(segments[:i+1], ".")),
			}
		}
		val, isVal := m.(Value)
		if !isVal {
			return Slot{}, &InvalidPathError{
				Path:    path,
				Message: fmt.Sprintf("segment %q is not a namespace", strings.Join(segments[:i+1], ".")),
			}
		}
		child, isObj := val.V.(*Object)
		if !isObj {
			return Slot{}, &InvalidPathError{
				Path:    path,
				Message: fmt.Sprintf("segment %q is occupied by a non-object member", strings.Join(segments[:i+1], ".")),
			}
		}
		current = child
	}

	return Slot{Parent: current, Name: segments[len(segments)-1]}, nil
}
