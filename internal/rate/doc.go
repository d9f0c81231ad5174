// Package rate implements Redis-backed fixed-window counters for failed
// login attempts.
//
// # Window semantics
//
// INCR + EXPIRE on the first hit of a window. Key layout:
//   - <prefix>:login:<email>  failed attempts per account
//   - <prefix>:ip:<address>   failed attempts per client address
//
// # What this package must NOT do
//
//   - Decide HTTP responses. Callers map ErrRateLimited themselves.
//   - Count successful logins.
package rate
