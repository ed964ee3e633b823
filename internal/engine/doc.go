// Package engine implements a deterministic, tick-driven agent-based
// simulator of a competitive online-game matchmaking system.
//
// The engine is a self-contained numeric kernel: construction, population
// generation, stepping and querying are synchronous, and nothing in this
// package performs I/O, logging, or network access. Everything that
// touches the outside world — experiment orchestration, persistence,
// serialization — is the caller's responsibility.
//
// A single Engine value is not safe for concurrent use; Tick and the
// Get* query methods must not overlap on the same instance. Multiple
// Engine values (e.g. one per parameter-sweep arm) are fully independent
// and may be driven concurrently from separate goroutines.
package engine
