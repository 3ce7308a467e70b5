package intercept

import (
	"fmt"

	"github.com/weftlabs/weft/internal/surface"
)

// Interceptor makes a single method on a single live object behave
// differently while leaving every non-intercepting caller unaffected, and
// makes the change fully reversible.
//
// Lifecycle: New -> Enable -> Disable (repeatable) -> Restore (terminal).
// Enable and Disable are idempotent. After Restore, Enable fails with
// ErrAlreadyRestored.
type Interceptor struct {
	slot     *slot
	decision DecisionFunc
	enabled  bool
}

// New constructs an interceptor for target[methodName]. The slot's original
// method is captured once, shared with any other interceptor on the same
// slot, and never re-captured. Construction has no observable side effect.
//
// Fails with ErrMissingTarget if target is nil or the slot does not hold a
// method.
func New(target *surface.Object, methodName string) (*Interceptor, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: nil target", ErrMissingTarget)
	}
	if methodName == "" {
		return nil, fmt.Errorf("%w: empty method name", ErrMissingTarget)
	}
	s, err := slots.acquire(target, methodName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, methodName)
	}
	return &Interceptor{slot: s}, nil
}

// Enable installs this interceptor's wrapper layer with the given decision
// function. Enabling while already enabled is a no-op (the original decision
// function stays in place).
func (ic *Interceptor) Enable(decision DecisionFunc) error {
	if ic.slot.terminated {
		return ErrAlreadyRestored
	}
	if ic.enabled {
		return nil
	}
	if decision == nil {
		return fmt.Errorf("intercept: nil decision function")
	}
	ic.decision = decision
	ic.enabled = true
	ic.slot.push(ic)
	return nil
}

// Disable removes this interceptor's wrapper layer. Layers enabled above or
// below are preserved: the remaining stack is recomposed over the original.
// Disabling while not enabled is a no-op.
func (ic *Interceptor) Disable() {
	if !ic.enabled {
		return
	}
	ic.enabled = false
	ic.slot.remove(ic)
}

// Restore unconditionally forces the method slot back to the first-captured
// original, removing every wrapper on the slot. Restore is terminal for all
// interceptors sharing the slot; subsequent Enable calls fail with
// ErrAlreadyRestored. A fresh interceptor constructed afterwards re-captures
// whatever then occupies the slot.
func (ic *Interceptor) Restore() {
	if ic.slot.terminated {
		return
	}
	ic.slot.restore()
	slots.drop(ic.slot)
}

// Enabled reports whether this interceptor's wrapper is currently installed.
func (ic *Interceptor) Enabled() bool {
	return ic.enabled
}

// wrap builds this layer's wrapper over the layer below. The wrapper
// preserves arguments transparently; panics from the decision function or
// from the layers below propagate unchanged to the caller.
func (ic *Interceptor) wrap(next surface.Func) surface.Func {
	return func(args ...any) any {
		res := ic.decision(Continuation(next), args...)
		if res == Proceed {
			return next(args...)
		}
		return res
	}
}
