package rule

import "github.com/weftlabs/weft/internal/surface"

// Context is the bag handed to installs and producers. The core forwards it
// opaquely: beyond the host surface reference, module authors extend it with
// whatever per-module helpers they need.
type Context struct {
	// Surface is the host API surface being patched.
	Surface *surface.Object

	values map[string]any
}

// NewContext creates a context for the given host surface.
func NewContext(s *surface.Object) *Context {
	return &Context{Surface: s, values: make(map[string]any)}
}

// Value returns a module-specific helper previously stored under key.
func (c *Context) Value(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// SetValue stores a module-specific helper under key.
func (c *Context) SetValue(key string, v any) {
	c.values[key] = v
}

// Artifacts is the opaque bag a Lifecycle install returns. The engine
// guarantees it is handed back unchanged to the matching uninstall.
type Artifacts map[string]any

// Rule is a sealed interface over the two patch rule variants.
// Only Lifecycle and PropertyDefinition implement it.
type Rule interface {
	rule() // Sealed - only these types implement it
}

// Lifecycle is an install/uninstall pair.
type Lifecycle struct {
	Install   func(*Context) (Artifacts, error)
	Uninstall func(*Context, Artifacts) error
}

func (Lifecycle) rule() {}

// PropertyMode selects how a PropertyDefinition is applied.
type PropertyMode int

const (
	// ModeAccessor defines a live member at the path: every read invokes
	// the producer and returns its result. Used for properties that must
	// reflect current state on each access.
	ModeAccessor PropertyMode = iota + 1

	// ModeStaticFactory invokes the producer exactly once at install time
	// and assigns the returned value statically. Used for methods whose
	// identity and closure should be fixed once, not recomputed per access.
	ModeStaticFactory
)

// PropertyDefinition declares an assignment at a dotted path on the host
// surface. Missing intermediate namespaces are created at install time;
// sibling members of shared namespaces are never touched.
type PropertyDefinition struct {
	Path    string
	Produce func(*Context) any
	Mode    PropertyMode
}

func (PropertyDefinition) rule() {}

// Property declares an accessor-mode property definition.
func Property(path string, produce func(*Context) any) PropertyDefinition {
	return PropertyDefinition{Path: path, Produce: produce, Mode: ModeAccessor}
}

// FactoryProperty declares a static-factory property definition.
func FactoryProperty(path string, produce func(*Context) any) PropertyDefinition {
	return PropertyDefinition{Path: path, Produce: produce, Mode: ModeStaticFactory}
}

// Func wraps the simplest module form - a bare function taking a context
// and returning a cleanup function - into a Lifecycle rule.
func Func(fn func(*Context) (func(), error)) Rule {
	return Lifecycle{
		Install: func(ctx *Context) (Artifacts, error) {
			cleanup, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			return Artifacts{"cleanup": cleanup}, nil
		},
		Uninstall: func(ctx *Context, a Artifacts) error {
			if cleanup, ok := a["cleanup"].(func()); ok && cleanup != nil {
				cleanup()
			}
			return nil
		},
	}
}
