// Package flows contains the orchestration for every Engine operation.
//
// Each Run* function takes a dependency struct of plain functions and
// returns a result carrying a failure kind plus the underlying error. The
// root engine maps kinds to public sentinel errors, metrics and audit
// events, so the same flow can be tested against fakes without Redis,
// key material or a real user store.
//
// Flow functions hold no state between calls and must not import authgate.
package flows
