package intercept

// Continuation invokes the behavior below the current wrapper layer with
// whatever arguments it is passed. For the bottom layer that is the original
// method.
type Continuation func(args ...any) any

// DecisionFunc is invoked on each intercepted call. It receives the
// continuation for the layer below plus the call's arguments.
//
// Returning Proceed means "invoke the layer below now with these arguments
// and return its result". Any other return value is the call's result and
// the layer below is not invoked; returning nil suppresses the call
// entirely. A decision function that wants to rewrite arguments calls next
// itself and returns the result.
type DecisionFunc func(next Continuation, args ...any) any

type proceedSentinel struct{ _ byte }

// Proceed is the sentinel a DecisionFunc returns to mean "proceed with the
// original behavior". It is a distinguished pointer, so it can never collide
// with a real return value.
var Proceed any = &proceedSentinel{}

// Before adapts a simpler decision function of the call's arguments into a
// full DecisionFunc. The simpler form returns either Proceed, meaning
// continue with the unmodified call, or a replacement result.
func Before(fn func(args ...any) any) DecisionFunc {
	return func(next Continuation, args ...any) any {
		if res := fn(args...); res != Proceed {
			return res
		}
		return next(args...)
	}
}
