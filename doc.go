// Package authstate provides client-side authentication state for Go
// applications: a shared state container kept consistent with a persisted
// token, plus the login and logout flows that write to it.
//
// An [Engine] is built once through [Builder.Build] and then shared by every
// consumer. Consumers read the derived [View] from [Engine.Auth] and never touch
// token storage directly.
//
// # Reconciliation
//
// [Engine.Mount] runs the [Reconciler] once and subscribes it to changes of
// the state's IsAuthenticated field. Each run reads the persisted token and, if
// one exists while the state is not authenticated, restores it into the state.
// Storage read failures count as "no token".
//
// # Architecture boundaries
//
// authstate is the public surface. It exposes [Engine], [Builder], [Config],
// [View] and the audit and metrics value types. Flow orchestration lives under
// internal/flows; the state container lives in package state and the storage
// backends in package storage.
//
// # What this package must NOT do
//
//   - Validate tokens against a server or refresh them.
//   - Synchronize state between processes.
//   - Import middleware, transport or any exporter package (no import cycles).
package authstate
