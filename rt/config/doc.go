// Package config provides a registry of typed, bounded configuration parameters
// that can be inspected and changed while the process runs.
//
// # Design highlights
//
//   - A closed set of variants behind one interface (Param): Number (bounded int64),
//     Boolean and Enum (index-aligned names and codes).
//   - Typed call sites use the concrete handle, obtained either from a builder or via
//     MustNumber / MustBoolean / MustEnum. Asking for the wrong variant panics.
//   - Read path (Get) is a single atomic load: lock-free, allocation-free, non-blocking.
//   - Write path (Set / SetFromString / ResetToDefault) validates, commits, then notifies.
//
// # Declaring parameters
//
//	reg := config.New()
//	readers := config.NewNumberBuilder("reader-threads", 8, 1, 1024).
//		WithModifyCallback(func(n int64) { _ = pool.Resize(int(n)) }).
//		MustBuild(reg)
//
// Names must be non-empty and can only contain characters in [A-Za-z0-9._-].
// Registering a name twice fails with ErrAlreadyRegistered; MustBuild turns that into
// a panic, since the set of names is fixed at compile time.
//
// # Write semantics
//
// A write runs these steps:
//  1. A hidden parameter (FlagHidden) written after Registry.Serve fails with ErrImmutable.
//  2. The bounds or domain check fails with *OutOfRangeError (ErrOutOfRange).
//  3. The validation callback, if any, fails with ErrInvalidArgument wrapping its error.
//  4. The value is committed under the parameter's commit lock.
//  5. The commit lock is released, then the modify callbacks run.
//
// A failed write never changes the value. Modify callbacks run after the commit lock is
// released, so a slow callback (for example a pool resize waiting for workers) never
// blocks Get, and a callback may read any parameter, including its own.
//
// Callbacks of one parameter are serialized. If two writes race, a callback for the
// older commit is skipped once the newer one has been applied. A panicking callback is
// logged and swallowed: the committed value stays authoritative.
//
// Writing a parameter from its own modify callback returns ErrReentrantWrite.
//
// # Start-up and serving
//
// A Registry starts in the start-up phase. Start-up sources (flags, environment, files)
// may set every parameter, including hidden ones. Serve switches to the serving phase.
// ResetToDefault is always allowed; it is what test helpers use to restore state.
package config
