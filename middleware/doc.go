// Package middleware adapts authgate.Engine to net/http.
//
// # Guards
//
//   - [Guard] requires a valid access token in the Authorization header and
//     stores the [authgate.AuthResult] in the request context.
//   - [ClientInfo] records the caller's IP and User-Agent so that audit
//     events emitted further down carry them.
//
// Guard rejects with 401 for every token failure and with 503 when the
// revocation store cannot answer. A token is never accepted while its
// revocation status is unknown.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not parse
// tokens or talk to Redis; every decision is delegated to
// Engine.ValidateAccess.
package middleware
