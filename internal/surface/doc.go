// Package surface models the host API surface as an explicit mutable tree.
//
// The host surface is an externally-owned object graph that weft augments
// without owning its lifecycle. Because patches are declared against dotted
// paths and members change shape at runtime, the surface is a dynamic tree
// rather than static Go structs: each Object maps member names to a sealed
// Member union (Value, Method, Accessor).
//
// This package contains the tree model only. All other internal packages
// import surface; surface imports nothing internal. This keeps it the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - The engine may extend the tree at leaf positions it owns, but must
//     never restructure or delete sibling branches (EnsurePath enforces this).
//   - Member iteration is sorted for deterministic behavior.
//   - Accessor members re-evaluate on every read; Value and Method members
//     are inert storage.
package surface
