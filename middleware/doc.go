// Package middleware exposes HTTP route guards driven by the authentication
// view of an authstate.Engine.
//
// # Guards
//
//   - [RequireAuthenticated]: protected pages. Waits out loading with 503,
//     redirects anonymous requests to the login page.
//   - [RedirectAuthenticated]: public pages such as login. Sends an already
//     authenticated visitor back where they came from.
//
// # Architecture boundaries
//
// Guards only read the derived view. They never touch token storage, never
// write the shared state and never trigger a reconciliation.
//
// # What this package must NOT do
//
//   - Parse or verify tokens.
//   - Read the raw state container.
package middleware
