// Package notify carries user-visible notices from the transport and session
// layers to whatever surface the application renders them on.
//
// # Components
//
//   - [Notifier]: the single-call surface, notify(level, message).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Notice]: structured record with level, message, error kind, status and request id.
//
// This package does not decide which failures deserve a notice; that belongs
// to the transport's failure phase.
package notify
