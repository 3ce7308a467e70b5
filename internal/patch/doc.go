// Package patch applies and retracts named bundles of rules against the
// host API surface, honoring inter-module dependencies.
//
// A Module owns an ordered list of rules plus a set of module-name
// dependencies. The Engine resolves a requested set of modules into a
// deterministic dependency order, installs each module's rules in sequence,
// and tears everything down in the exact reverse of the order actually used
// to install (recorded, never recomputed).
//
// ATOMICITY:
//
// A module is always either fully installed or fully absent. If a rule
// fails mid-install, the rules already applied for that module are rolled
// back in reverse before the error propagates. Modules installed earlier in
// the same EnableAll are left in place; the caller decides whether to tear
// them down.
//
// Rule-application errors are never swallowed - silently leaving the host
// surface half-patched is worse than a visible failure.
package patch
