// Package audit implements async event dispatching for authentication outcomes.
//
// # Components
//
//   - [Sink] is the consumer interface (channel, JSON writer, logr, no-op).
//   - [Dispatcher] is a buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event] is the audit record: timestamp, type, user, session, client, reason.
//
// This package does not decide which events to emit; the engine does.
// It must not import authgate.
package audit
