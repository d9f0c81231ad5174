// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunReconcile, RunLogin, RunLogout) accepts a typed
// dependency struct and returns a result value. The flows never hold state
// between calls; the Engine owns the container, storage and HTTP client and
// passes narrow function dependencies in.
//
// # What this package must NOT do
//
//   - Import authstate (to avoid import cycles).
//   - Log, emit audit events or touch metrics; the Engine does that from the
//     returned results.
package flows
