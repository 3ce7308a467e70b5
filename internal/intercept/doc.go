// Package intercept provides reversible method interception on the host
// API surface.
//
// An Interceptor wraps one method on one live surface object. While enabled,
// every call to the method is routed through a decision function that may
// proceed with the original behavior, rewrite the arguments, replace the
// result, or suppress the call entirely. Disabling an interceptor removes
// exactly its own wrapper; restoring forces the slot back to the original
// method captured when interception of the slot began.
//
// STACKING:
//
// Two interceptors wrapping the same method is legal. Naively remembering
// "whatever occupied the slot before my enable" and writing it back on
// disable silently drops later wrappers when interceptors are disabled out
// of order. Instead, each (target, method) slot owns an explicit ordered
// stack of layers. Enable pushes a layer, disable removes that interceptor's
// layer wherever it sits, and the remaining layers are recomposed over the
// original. No wrapper is ever dropped by another interceptor's disable.
//
// The original method for a slot is captured exactly once, when the first
// interceptor for that slot is constructed, and never re-captured.
package intercept
