// Package password hashes and verifies login passwords with argon2id.
//
// # Output format
//
// Hashes are PHC strings with unpadded standard base64 salt and key:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters than
// the hasher's own, so a caller can re-hash after the next successful login.
//
// # What this package must NOT do
//
//   - Store users or hashes. Callers own persistence.
//   - Log plaintext passwords.
package password
