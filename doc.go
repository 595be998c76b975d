// Package labauth is the client-side authentication layer of the lab
// knowledge-management system: a persistent credential store, the session
// state on top of it, an HTTP client that attaches tokens and recovers from
// access-token expiry, and the navigation guard.
//
// A [Client] is built once per application through [Builder] and shared. Its
// methods are safe to call from multiple goroutines.
//
// # Architecture boundaries
//
// labauth is the wiring surface. It exposes [Client], [Builder], [Config]
// and re-exports the error sentinels callers match on. The moving parts
// live in sub-packages (store, session, transport, refresh, route, guard,
// router, notify, metrics) and never import this package.
//
// # What this package must NOT do
//
//   - Perform I/O before [Builder.Build] (construction is allocation-only,
//     except opening a file or Redis store).
//   - Log token values.
//   - Import any sub-package that re-imports labauth (no import cycles).
package labauth
