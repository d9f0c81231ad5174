// Package internal holds helpers private to the authstate module.
//
// # Sub-packages
//
//   - flows: pure-function orchestrators for reconcile, login and logout
//   - rate: Redis fixed-window counters for failed login attempts
//
// # What this package must NOT do
//
//   - Export types that appear in the public authstate API.
package internal
