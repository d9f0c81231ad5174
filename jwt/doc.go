// Package jwt reads identity claims out of persisted access tokens and mints
// tokens for local login endpoints.
//
// # Architecture boundaries
//
// Inspect never verifies signatures. The reconciler treats a persisted token
// as opaque; Inspect exists for display surfaces such as `authctl status`
// and must not be used to make authorization decisions.
//
// Manager issues and verifies tokens for development and test login servers.
//
// # What this package must NOT do
//
//   - Read or write token storage.
//   - Touch the shared authentication state.
package jwt
