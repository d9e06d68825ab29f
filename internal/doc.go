// Package internal holds helpers private to authgate, currently session
// identifier generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: one orchestrator per Engine operation
//   - config: Viper-backed server settings for cmd/authgate
//   - httpapi: the JSON API served by cmd/authgate
package internal
