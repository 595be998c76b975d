// Package flows contains pure-function orchestrators for the session
// operations.
//
// Each flow function (RunLogin, RunLogout, RunRefresh, RunFetchProfile)
// accepts a typed dependency struct and returns results without side effects
// beyond those dependencies. The session state stays thin and the flows can
// be tested with plain function fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the transport, the credential store,
// the refresh exchange and metrics. They do NOT own any of these resources;
// ownership stays with session.State.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import session or labauth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
