// Package state provides the process-wide authentication state container.
//
// A [Container] holds one [State] value and is the single write path for it:
// every collaborator (login, logout, reconciliation) mutates state through
// [Container.Patch]. Consumers observe changes through [Container.Subscribe] or,
// for one field only, [Container.SubscribeField].
//
// # Single source of truth
//
// The container keeps IsAuthenticated equal to "Token is non-empty" after every
// patch. Writers may still set both fields explicitly; the normalization only
// removes the window where the two could disagree.
//
// # What this package must NOT do
//
//   - Read or write persisted tokens (see package storage).
//   - Import authstate or any flow package.
package state
