// Package password implements secret hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification reads the cost parameters from the stored hash, so hashes
// produced under older settings keep verifying after a config change.
//
// [Argon2.VerifyDummy] performs a full verification against a throwaway hash.
// Callers use it when no stored hash exists for an identifier so that lookup
// misses and wrong secrets take the same time.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other authgate package.
//   - Log plaintext passwords.
package password
