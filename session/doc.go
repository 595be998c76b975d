// Package session holds the in-memory authenticated session on top of the
// credential store.
//
// # Ownership
//
// [State] exclusively owns the session: it hydrates from the store at
// construction and writes every change back through it. The transport reads
// tokens from the store directly and reports the changes it makes through
// transport.Hooks, which State installs so both views stay consistent.
//
// # What this package must NOT do
//
//   - Perform HTTP itself. Every call goes through transport.Client.
//   - Log token values. Presence and length only.
package session
