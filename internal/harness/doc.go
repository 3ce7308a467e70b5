// Package harness provides a conformance testing framework for patch modules.
//
// A scenario is a YAML file describing a session against a fresh host
// surface: which modules to enable, the calls and reads to perform, the
// locks to acquire, and the assertions that must hold afterwards. Each
// run gets its own surface, patch engine, in-memory coordination storage,
// and manual clock, so scenarios are deterministic and isolated.
//
// Module behavior itself is Go code; scenarios reference modules by name
// and the caller supplies the implementations. Golden files capture the
// full event trace of a run for regression comparison.
package harness
