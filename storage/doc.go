// Package storage provides persistent token storage backends.
//
// A [TokenStorage] is a small key-value store for opaque token strings. It
// plays the role a browser's local storage plays for a web client: it outlives
// the process and is read on start-up to restore authentication state.
//
// # Backends
//
//   - [Memory]: process-local map, used in tests and as the default.
//   - [FileStorage]: one TOML document on disk, suitable for CLIs.
//   - [RedisStorage]: Redis keys under a prefix, shared by several processes.
//   - [SQLiteStorage]: a single-table SQLite database.
//
// Get reports absence with ok == false and a nil error. Backend failures are
// wrapped with [ErrUnavailable].
//
// # What this package must NOT do
//
//   - Interpret token contents.
//   - Apply expiry or encryption; tokens are stored as given.
package storage
