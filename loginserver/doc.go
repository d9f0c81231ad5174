// Package loginserver implements the login endpoint contract consumed by
// authstate.Engine.Login.
//
// It serves POST /v1/auth/login, checks credentials with password.Argon2
// (re-hashing stale hashes after a successful login) and answers with the
// envelope the login flow decodes:
//
//	{"data":{"user_id":"...","email":"...","token":{"access_token":"..."}},
//	 "message":"login successful","status_code":200}
//
// # Throttling
//
// With Config.Throttle.Redis set, failed attempts are counted per email (and
// per client address with PerIP) in a fixed window. Exhausted budgets answer
// 429 "too many login attempts" with Retry-After.
//
// # What this package must NOT do
//
//   - Persist users. The registry lives in memory for the lifetime of the Server.
//   - Log plaintext passwords or issued tokens.
package loginserver
