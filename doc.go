// Package authgate is a user-authentication gateway: it registers accounts,
// verifies credentials, issues short-lived access tokens paired with
// long-lived refresh tokens, and revokes sessions on logout.
//
// Both tokens of a login carry the same session id. Logout records that
// session id in a revocation store, after which every token of the session
// (access or refresh) is rejected as revoked, even before it expires.
// Sessions that were never revoked need no server-side state.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface: [Engine], [Builder], [Config] and value
// types. Flow orchestration and audit dispatch live under internal/. Token
// signing lives in jwt/, secret hashing in password/, and the revocation
// ledger in revocation/.
//
// # What this package must NOT do
//
//   - Log or return tokens, secrets or signing keys.
//   - Define the user storage schema. [UserProvider] is the only contract.
//   - Accept a token whose revocation status could not be determined.
package authgate
