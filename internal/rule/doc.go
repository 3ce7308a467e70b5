// Package rule defines the declarative patch units the engine applies to
// the host API surface.
//
// A Rule is a sealed tagged union with two variants:
//
//   - Lifecycle: an install/uninstall pair. Install returns an opaque
//     artifact bag that the engine retains and hands back, unchanged, to
//     Uninstall.
//   - PropertyDefinition: a declarative assignment at a dotted path, in one
//     of two explicit modes. Accessor mode defines a live member whose
//     producer runs on every read; StaticFactory mode runs the producer
//     exactly once at install time and assigns the result statically.
//
// Rules are created once per capability and are stateless between install
// cycles: all per-cycle state lives in the artifact bag or in the slot
// snapshot the engine keeps for teardown.
package rule
