// Package revocation stores the set of revoked session identifiers.
//
// Revocation is a monotonic set union: once a session id is revoked it stays
// revoked until its retention TTL elapses, and a second Revoke never moves
// the recorded revocation time. Retention must be at least the longest
// refresh-token lifetime, after which every token for the session fails
// expiry checks anyway.
//
// # Backends
//
//   - [RedisStore] uses SET NX with a TTL per session id. Reads and writes on
//     a single key are strongly consistent, so a revoke is visible to every
//     validator that shares the Redis deployment as soon as it returns.
//   - [MemoryStore] keeps entries in a process-local map. It suits tests and
//     single-instance deployments; revocations are lost on restart.
//
// Transport failures and timeouts are wrapped with [ErrStoreUnavailable].
//
// # What this package must NOT do
//
//   - Parse or verify tokens.
//   - Remove an entry before its retention TTL.
package revocation
